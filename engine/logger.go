package engine

import (
	stdlog "log"
	"os"
)

var log *stdlog.Logger

func init() {
	log = stdlog.New(os.Stdout, "[engine]", stdlog.LstdFlags|stdlog.Lmsgprefix)
}

func SetLoggerFlag(flag int) {
	log.SetFlags(flag)
}
