package logging

import (
	"log"
	"os"
)

// Init sets the standard logger up for the command line tools: stdout,
// with microsecond timestamps and an optional prefix
func Init(prefix string) {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if prefix != "" {
		log.SetPrefix("[" + prefix + "] ")
	}
}
