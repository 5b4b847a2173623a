// Package domain contains the core concepts of the label print service:
// the inbound print request, its normalized render data and the pipeline
// errors. Keep this package free of transport (HTTP) and infrastructure
// (processes, Redis) concerns.
package domain
