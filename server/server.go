package server

import (
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/fsnotify/fsnotify"
	"github.com/jpillora/cookieauth"
	"github.com/jpillora/probset/engine"
	"github.com/jpillora/probset/server/httpmiddleware"
	pstatic "github.com/jpillora/probset/static"
	"github.com/jpillora/requestlog"
	"github.com/jpillora/velox"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

//Server is the web face of the calculator. It parses the operator's
//form strings, feeds all three solvers identical constraints and
//live-syncs whatever resolved back to connected browsers.
type Server struct {
	//config
	Title          string `help:"Title of this instance" env:"TITLE"`
	Port           int    `help:"Listening port" env:"PORT"`
	Host           string `help:"Listening interface (default all)"`
	Auth           string `help:"Optional basic auth in form 'user:password'" env:"AUTH"`
	ConfigPath     string `help:"Configuration file path"`
	KeyPath        string `help:"TLS Key file path"`
	CertPath       string `help:"TLS Certicate file path" short:"r"`
	Log            bool   `help:"Enable request logging"`
	Open           bool   `help:"Open now with your default browser"`
	DisableLogTime bool   `help:"Don't print timestamp in log"`

	//http handlers
	files    http.Handler
	indexTPL *template.Template

	//api rate limiter, swapped on reconfigure, guarded by the state mutex
	limiter *rate.Limiter

	//velox state
	state struct {
		velox.State
		sync.Mutex
		Config engine.Config
		Latest Resolution
		Users  map[string]string
		Stats  struct {
			Title   string
			Version string
			Runtime string
			Uptime  time.Time
			System  stats
		}
	}
}

type baseInfo struct {
	Title   string
	Version string
	Runtime string
}

// Run the server
func (s *Server) Run(version string) error {
	if s.DisableLogTime {
		log.SetFlags(0)
		engine.SetLoggerFlag(0)
	}
	isTLS := s.CertPath != "" || s.KeyPath != "" //poor man's XOR
	if isTLS && (s.CertPath == "" || s.KeyPath == "") {
		return fmt.Errorf("you must provide both key and cert paths")
	}
	s.state.Stats.Title = s.Title
	s.state.Stats.Version = version
	s.state.Stats.Runtime = strings.TrimPrefix(runtime.Version(), "go")
	s.state.Stats.Uptime = time.Now()
	//init maps
	s.state.Users = map[string]string{}
	//will use the local static/files/ dir if it exists, otherwise the embedded copy
	s.files = pstatic.FileSystemHandler()
	c, err := pstatic.ReadAll("index.html")
	if err != nil {
		return fmt.Errorf("missing index: %w", err)
	}
	s.indexTPL = template.Must(template.New("index.html").Delims("[[", "]]").Parse(string(c)))

	//hyperparameter defaults
	conf, err := engine.InitConf(s.ConfigPath)
	if err != nil {
		return fmt.Errorf("initial configure failed: %w", err)
	}
	if err := s.reconfigure(*conf); err != nil {
		return fmt.Errorf("initial configure failed: %w", err)
	}
	log.Printf("Read Config: %#v\n", conf)
	s.watchConfig()

	//collect sys stats while clients are connected
	go func() {
		s.state.Stats.System.loadStats()
		for range time.Tick(5 * time.Second) {
			if s.state.NumConnections() == 0 {
				continue
			}
			s.state.Stats.System.loadStats()
			s.state.Push()
		}
	}()

	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, s.Port)
	proto := "http"
	if isTLS {
		proto += "s"
	}
	if s.Open {
		openhost := host
		if openhost == "0.0.0.0" {
			openhost = "localhost"
		}
		go func() {
			time.Sleep(1 * time.Second)
			open.Run(fmt.Sprintf("%s://%s:%d", proto, openhost, s.Port))
		}()
	}
	//define handler chain, from last to first
	h := http.Handler(http.HandlerFunc(s.handle))
	//gzip
	gzipWrap, _ := gziphandler.NewGzipLevelAndMinSize(gzip.DefaultCompression, 0)
	h = gzipWrap(h)
	//auth
	if s.Auth != "" {
		user := s.Auth
		pass := ""
		if s := strings.SplitN(s.Auth, ":", 2); len(s) == 2 {
			user = s[0]
			pass = s[1]
		}
		h = cookieauth.New().SetUserPass(user, pass).Wrap(h)
		log.Printf("Enabled HTTP authentication")
	}
	h = httpmiddleware.Liveness(h)
	if s.Log {
		h = requestlog.Wrap(h)
	}
	log.Printf("Listening at %s://%s", proto, addr)
	//serve!
	server := http.Server{
		//disable http2 due to velox bug
		TLSNextProto: map[string]func(*http.Server, *tls.Conn, http.Handler){},
		//address
		Addr: addr,
		//handler stack
		Handler: h,
	}
	if isTLS {
		return server.ListenAndServeTLS(s.CertPath, s.KeyPath)
	}
	return server.ListenAndServe()
}

func (s *Server) reconfigure(c engine.Config) error {
	c.Normalize()
	if err := c.WriteYaml(); err != nil {
		return err
	}
	s.state.Lock()
	s.limiter = c.ResolveLimiter()
	s.state.Config = c
	s.state.Unlock()
	s.state.Push()
	return nil
}

// watchConfig hot-reloads hyperparameter defaults when the config file
// changes on disk.
func (s *Server) watchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("config file changed: %s", e.Name)
		c := engine.Config{}
		if err := viper.Unmarshal(&c); err != nil {
			log.Printf("config reload failed: %s", err)
			return
		}
		c.Normalize()
		s.state.Lock()
		s.limiter = c.ResolveLimiter()
		s.state.Config = c
		s.state.Unlock()
		s.state.Push()
	})
	viper.WatchConfig()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
		s.state.Lock()
		info := baseInfo{
			Title:   s.state.Stats.Title,
			Version: s.state.Stats.Version,
			Runtime: s.state.Stats.Runtime,
		}
		s.state.Unlock()
		if err := s.indexTPL.Execute(w, info); err != nil {
			log.Printf("render index failed: %s", err)
		}
		return
	case "/js/velox.js":
		//realtime client library
		velox.JS.ServeHTTP(w, r)
		return
	case "/sync":
		//realtime client connections, setting content-encoding to avoid gzip buffer
		w.Header().Set("Content-Encoding", "identity")
		conn, err := velox.Sync(&s.state, w, r)
		if err != nil {
			log.Printf("sync failed: %s", err)
			return
		}
		s.state.Lock()
		s.state.Users[conn.ID()] = r.RemoteAddr
		s.state.Unlock()
		s.state.Push()
		conn.Wait()
		s.state.Lock()
		delete(s.state.Users, conn.ID())
		s.state.Unlock()
		s.state.Push()
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.restAPIhandle(w, r)
		return
	}
	//no match, assume static file
	s.files.ServeHTTP(w, r)
}
