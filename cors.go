package weave

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the built-in "cors" hook.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// DefaultCORSConfig allows everything. Tighten it for anything serious.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}
}

// CORSHook applies CORS headers and answers preflight requests. It ships
// pre-registered under the name "cors"; replace it by registering another
// hook under the same name.
type CORSHook struct {
	config CORSConfig
}

// NewCORSHook creates a CORS hook with the given config.
func NewCORSHook(config CORSConfig) *CORSHook {
	return &CORSHook{config: config}
}

// Handle sets the response headers and, for an OPTIONS preflight, answers
// 204 and halts the pipeline.
func (h *CORSHook) Handle(c *Context) error {
	origin := c.Header("Origin")
	if origin == "" {
		return nil
	}

	allowed := ""
	for _, o := range h.config.AllowOrigins {
		if o == "*" || o == origin {
			allowed = o
			break
		}
	}
	if allowed == "" {
		return nil
	}

	c.SetHeader("Access-Control-Allow-Origin", allowed)
	if h.config.AllowCredentials {
		c.SetHeader("Access-Control-Allow-Credentials", "true")
	}
	if len(h.config.ExposeHeaders) > 0 {
		c.SetHeader("Access-Control-Expose-Headers", strings.Join(h.config.ExposeHeaders, ", "))
	}

	if c.Request.Method == http.MethodOptions {
		c.SetHeader("Access-Control-Allow-Methods", strings.Join(h.config.AllowMethods, ", "))
		c.SetHeader("Access-Control-Allow-Headers", strings.Join(h.config.AllowHeaders, ", "))
		if h.config.MaxAge > 0 {
			c.SetHeader("Access-Control-Max-Age", strconv.Itoa(h.config.MaxAge))
		}
		c.Status(http.StatusNoContent)
		c.Halt()
	}

	return nil
}
