// Package manifest loads deployment manifests and resolves target environments.
//
// A manifest lists deployment environments. Each environment maps to one
// remote project and carries the services to push into it:
//
//	environments:
//	  - project: prod
//	    id: p1
//	    repos:
//	      api:
//	        image: registry.example.com/api:v2
//	        config:
//	          replicas: 3
//	        files:
//	          genesis: https://example.com/genesis.json
//
// # Ordering
//
// Services and files are kept in document order. The deploy walker relies on
// that order, so both are decoded from the YAML node tree rather than into Go
// maps.
//
// # Templating
//
// With WithTemplate the raw file is rendered as a text/template (sprig
// functions available) before it is parsed:
//
//	image: registry.example.com/api:{{ env "GITHUB_SHA" | trunc 7 }}
package manifest
