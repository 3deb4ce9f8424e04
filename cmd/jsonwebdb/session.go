package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/client"
)

// connFlags are the connection options shared by all commands.
type connFlags struct {
	url      string
	user     string
	password string
	lang     string
	logLevel string
	timeout  time.Duration
	compress bool
	debug    bool
	caFile   string
	certFile string
	keyFile  string
	insecure bool
}

func newFlagSet(name string) (*flag.FlagSet, *connFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := client.DefaultOptions()
	c := &connFlags{}
	fs.StringVar(&c.url, "url", envOr("JSONWEBDB_URL", defaults.URL), "Service endpoint")
	fs.StringVar(&c.user, "user", os.Getenv("JSONWEBDB_USER"), "Username")
	fs.StringVar(&c.password, "password", os.Getenv("JSONWEBDB_PASSWORD"), "Password")
	fs.StringVar(&c.lang, "lang", defaults.Language, "Language of client messages")
	fs.StringVar(&c.logLevel, "log-level", envOr("JSONWEBDB_LOG_LEVEL", "WARN"), "Driver log level")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "Deadline for the whole command")
	fs.BoolVar(&c.compress, "compress", false, "Gzip request bodies")
	fs.BoolVar(&c.debug, "debug", false, "Print debug details on errors")
	fs.StringVar(&c.caFile, "ca", "", "PEM file of trusted CA certificates")
	fs.StringVar(&c.certFile, "cert", "", "Client certificate for mutual TLS")
	fs.StringVar(&c.keyFile, "key", "", "Client key for mutual TLS")
	fs.BoolVar(&c.insecure, "insecure", false, "Skip server certificate verification")
	return fs, c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *connFlags) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// connect opens a stateless session. The caller must call the returned
// release function.
func (c *connFlags) connect(ctx context.Context) (*client.Session, func(), error) {
	opts := client.DefaultOptions()
	opts.URL = c.url
	opts.Language = c.lang
	opts.Compress = c.compress
	opts.DebugMode = c.debug
	opts.TLSCAFile = c.caFile
	opts.TLSCertFile = c.certFile
	opts.TLSKeyFile = c.keyFile
	opts.TLSInsecureSkipVerify = c.insecure
	opts.Logger = client.NewLogger(c.logLevel, stderr)

	s, err := client.NewSession(&opts)
	if err != nil {
		return nil, nil, err
	}

	release := func() {
		if s.Connected() {
			if _, err := s.Disconnect(ctx); err != nil {
				printWarning(fmt.Sprintf("disconnect failed: %s", c.format(err)))
			}
		}
		s.Close()
	}

	ok, err := s.Connect(ctx, c.user, c.password, false)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("connect: %s", c.format(err))
	}
	if !ok {
		release()
		return nil, nil, fmt.Errorf("connect rejected: %s", s.ErrorMessage())
	}
	return s, release, nil
}

func (c *connFlags) format(err error) string {
	return client.FormatError(err, c.debug)
}
