package weave

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

// Config is the fluent server configuration for the root router.
type Config struct {
	r *Router
}

// Config gets the config for the server.
func (r *Router) Config() *Config {
	return &Config{r: r}
}

// SetPort sets the port for the server.
func (c *Config) SetPort(port int) *Config {
	c.r.port = port
	return c
}

// SetDev sets the server to development mode: debug request logging and
// template hot reload.
func (c *Config) SetDev(dev bool) *Config {
	c.r.isDev = dev
	return c
}

// SetLogger replaces the router's logger. The default is a no-op logger.
func (c *Config) SetLogger(logger *zap.Logger) *Config {
	if logger != nil {
		c.r.logger = logger
	}
	return c
}

// UseSSL sets the server to use SSL.
// cert and key are the paths to the certificate and key files.
func (c *Config) UseSSL(cert, key string) *Config {
	c.r.cert = cert
	c.r.key = key
	return c
}

// UseAutoTLS sets the server to obtain certificates automatically for the
// given domains, caching them in cacheDir.
func (c *Config) UseAutoTLS(domains []string, cacheDir string) *Config {
	c.r.autoTLSDomains = domains
	c.r.autoTLSCache = cacheDir
	return c
}

// StopOnInterrupt stops the server on interrupt signal.
func (c *Config) StopOnInterrupt() *Config {
	c.r.stopOnInt = true
	return c
}

// EnableMetrics exposes Prometheus metrics on endpoint and starts
// per-request collection under the given namespace.
func (c *Config) EnableMetrics(endpoint, namespace string) *Config {
	if namespace == "" {
		namespace = "weave"
	}
	c.r.metrics = newMetrics(namespace)
	c.r.metricsEndpoint = endpoint
	return c
}

// NotFound registers the 404 page as an on_404 hook.
func (c *Config) NotFound(fn func(*Context) error) *Config {
	c.r.OnFunc(EventOn404, fn)
	return c
}

// OnError registers the error page as an on_error hook.
func (c *Config) OnError(fn func(*Context) error) *Config {
	c.r.OnFunc(EventOnError, fn)
	return c
}

// StartServer boots the framework and serves until the server stops:
// framework_start fires, models load (lazily; the load events bracket the
// registration snapshot), routes are sealed, and the listener starts.
func (r *Router) StartServer() error {
	r.systemTrigger(EventFrameworkStart)

	r.systemTrigger(EventBeforeModelsLoad)
	r.logger.Info("models registered", zap.Strings("models", r.models.Names()))
	r.systemTrigger(EventAfterModelsLoad)

	r.systemTrigger(EventBeforeRouterInit)
	r.systemTrigger(EventAfterRoutesRegistered)

	if r.isDev {
		if err := r.views.watch(r.logger); err != nil {
			r.logger.Warn("template hot reload unavailable", zap.Error(err))
		}
	}

	r.server = &http.Server{
		Addr:    ":" + strconv.Itoa(r.port),
		Handler: r,
	}

	if r.stopOnInt {
		exitChan := make(chan os.Signal, 2)
		signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

		go func() {
			<-exitChan
			r.logger.Info("shutting down")
			if err := r.StopServer(); err != nil {
				r.logger.Error("shutdown failed", zap.Error(err))
			}
		}()
	}

	r.logger.Info("listening", zap.Int("port", r.port))

	var err error
	switch {
	case len(r.autoTLSDomains) > 0:
		err = r.serveAutoTLS()
	case r.cert != "" && r.key != "":
		err = r.server.ListenAndServeTLS(r.cert, r.key)
	default:
		err = r.server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// serveAutoTLS serves HTTPS with automatic certificate management, plus an
// HTTP-01 challenge listener on :80.
func (r *Router) serveAutoTLS() error {
	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(r.autoTLSDomains...),
	}
	if r.autoTLSCache != "" {
		manager.Cache = autocert.DirCache(r.autoTLSCache)
	}

	r.server.TLSConfig = &tls.Config{
		GetCertificate: manager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}

	go func() {
		if err := http.ListenAndServe(":80", manager.HTTPHandler(nil)); err != nil {
			r.logger.Warn("HTTP-01 challenge listener stopped", zap.Error(err))
		}
	}()

	return r.server.ListenAndServeTLS("", "")
}

// StopServer drains the server and fires framework_shutdown. Connections
// that outlive the drain window are closed hard.
func (r *Router) StopServer() error {
	defer r.systemTrigger(EventFrameworkShutdown)
	r.views.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := r.server.Shutdown(ctx)
	if err == nil {
		return nil
	}
	return r.server.Close()
}
