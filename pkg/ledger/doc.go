// Package ledger defines the public surface of the ledgerdesk HTTP client:
// the Client interface, its configuration, and the Result and Failure types
// every call returns.
//
// Construct a client with the ldclient package:
//
//	client, err := ldclient.New(ctx, &ledger.Config{
//	    BaseURL:     "https://erp.example.com/api",
//	    Persistence: persistence.NewMemory(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if r := client.Login(ctx, ledger.Credentials{Username: "demo", Password: "secret"}); !r.Success() {
//	    log.Fatalf("login: %v", r.Failure)
//	}
//
//	products, err := client.Products().List(ctx, nil).Unwrap()
//
// Raw calls return a Result[json.RawMessage]; use Decode to obtain a typed
// value, and ExpectShape to declare how the endpoint wraps its payload:
//
//	raw := client.Get(ctx, "/reports/daily", nil, ledger.ExpectShape(ledger.ShapeEnvelope))
//	report := ledger.Decode[DailyReport](raw)
package ledger
