// Package pkg holds the libraries behind the folio portfolio server.
//
// # Overview
//
// Folio serves a personal portfolio site: a wall of visitor notes, a blog
// and GitHub sign-in. The pkg directory is organized by concern:
//
//  1. [placement] - the spiral search that keeps notes from overlapping
//  2. [notes], [blog], [users] - domain services and their store interfaces
//  3. [storage] - sqlite and mongo implementations of those stores
//  4. [cache], [session] - null/file/redis caches and session stores
//  5. [integrations] - the GitHub OAuth client
//  6. [config], [errors], [observability], [httputil], [buildinfo] - shared plumbing
//
// # Architecture
//
// A request to pin a note flows through:
//
//	HTTP handler (internal/server)
//	         ↓
//	    [notes.Service] (validate, load existing positions)
//	         ↓
//	    [placement.Advisor] (spiral search for a free spot)
//	         ↓
//	    [notes.Store] (sqlite or mongo)
//
// # Quick Start
//
//	adv := placement.New(placement.DefaultConfig())
//	res := adv.Place(placement.Point{X: 100, Y: 100}, []placement.Point{{X: 100, Y: 100}})
//	// res.Point == {100, 220}, res.Adjusted == true
//
// The [placement] package has no dependencies and can be used on its own.
package pkg
