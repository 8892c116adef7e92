// Package middleware provides the HTTP middleware of the photo wallet API:
// request logging in W3C Extended Log Format, with optional filtering of
// static files and health checks, and Prometheus request metrics labelled
// by route template.
package middleware
