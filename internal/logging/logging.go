// Package logging wraps logrus the way Lidne-marketdata-agregator's
// cmd/server/main.go does (logrus.New + JSONFormatter), replacing the
// teacher's bare fmt.Println/log.Printf call sites across cmd/server and
// api/grpc with structured fields (order_id, side, price) at the same
// call sites.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a JSON-formatted logrus logger writing to stderr, tagged
// with the service and symbol it is running for.
func New(service, symbol string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	return logger.WithFields(logrus.Fields{
		"service": service,
		"symbol":  symbol,
	})
}
