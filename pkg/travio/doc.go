// Package travio provides types, interfaces, and helpers for working with the
// Travio booking gateway.
//
// # Overview
//
// The travio package defines the wire types (Station, Identity, Organization,
// TokenPair) and the resource client interfaces (AuthClient,
// OrganizationsClient, StationsClient). A concrete implementation is assembled
// by the travioclient package, which wires configuration, transport, token
// refresh, the session store and the stations catalog. Most consumers should
// build a travioclient.App and work through its Session and Stations.
//
// Getting an app
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/travio/travio-client/pkg/travio"
//	  "github.com/travio/travio-client/pkg/travioclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  app, err := travioclient.New(ctx, &travio.Config{APIEndpoint: "https://api.travio.example"})
//	  if err != nil { log.Fatal(err) }
//	  defer app.Close()
//
//	  if !app.Session.Login(ctx, "ops@example.com", "secret") {
//	    log.Fatal(app.Session.Error())
//	  }
//
//	  stations, err := app.Stations.Load(ctx, false)
//	  if err != nil { log.Fatal(err) }
//	  _ = stations
//	}
//
// # Queries and pagination
//
// QueryParams carries the list options understood by the gateway (search_query,
// page_size, page_token). Every collection answers with a ListResponse
// envelope. PaginationIterator and FetchAllPages walk a collection page by page
// until the server stops returning a next_page_token:
//
//	all, err := travio.FetchAllPages(ctx, app.Client().Stations().List, nil, &travio.PaginationOptions{PageSize: 100})
//
// # Errors
//
// Non-2xx responses are returned as *APIError. IsUnauthorized, IsForbidden and
// IsNotFound branch on the status; IsNetworkError reports exchanges that never
// produced a response.
//
// # Signals
//
// Signals is the in-process bus on which the transport announces silent
// credential refreshes (SignalSessionRefreshed) and unrecoverable sessions
// (SignalAuthCleared). Stores subscribe to it to keep their state in step
// with the credentials.
//
// # Storage
//
// Cache is the durable key-value abstraction behind credentials and point
// lookups. MemoryCache, SQLiteCache and NATSKVCache implement it; CacheChain
// layers them and CacheManager adds TTL defaults and hit statistics.
package travio
