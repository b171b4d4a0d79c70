// Package ldclient is the entry point for constructing a ledgerdesk API
// client that implements the ledger.Client interface.
//
// Every call to New returns an isolated instance with its own session,
// timeout and retry budget. Applications that want a single shared client
// can register one with SetDefault and retrieve it anywhere with Default.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/ledgerdesk/pkg/ldclient"
//	  "github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
//	  "github.com/fivetwenty-io/ledgerdesk/pkg/persistence"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  path, err := persistence.DefaultFilePath()
//	  if err != nil { log.Fatal(err) }
//
//	  cli, err := ldclient.New(ctx, &ledger.Config{
//	    BaseURL:     "erp.example.com/api", // https:// is assumed
//	    Persistence: persistence.NewFile(path),
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  if !cli.IsAuthenticated() {
//	    r := cli.Login(ctx, ledger.Credentials{Username: "demo", Password: "secret"})
//	    if r.Failure != nil { log.Fatal(r.Failure) }
//	  }
//
//	  products, err := cli.Products().List(ctx, nil).Unwrap()
//	  if err != nil { log.Fatal(err) }
//	  _ = products
//	}
//
// # Helpers
//
// NewWithEndpoint builds a client from a base URL alone, with an in-memory
// session and default timeout and retries.
package ldclient
