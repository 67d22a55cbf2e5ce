package main

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type commander interface {
	Command(unit int, command string, level int)
}

// commandHandler queues POST /command?unit=10&command=On for the plugin.
func commandHandler(c commander, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		unit, err := strconv.Atoi(q.Get("unit"))
		if err != nil {
			http.Error(w, "invalid unit", http.StatusBadRequest)
			return
		}
		command := q.Get("command")
		if command == "" {
			http.Error(w, "missing command", http.StatusBadRequest)
			return
		}
		level := 0
		if l := q.Get("level"); l != "" {
			if level, err = strconv.Atoi(l); err != nil {
				http.Error(w, "invalid level", http.StatusBadRequest)
				return
			}
		}

		logger.Infof("Command for unit %d: %s", unit, command)
		c.Command(unit, command, level)
		w.WriteHeader(http.StatusAccepted)
	})
}
