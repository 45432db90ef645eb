// Package bootstrap runs a service through its lifecycle.
//
// Startup has two component phases. Infrastructure components registered
// before Run (database, redis) start first; OnConfigure callbacks then
// build the domain on top of them and may register further components
// (HTTP server, kafka, sweeper), which start next. Shutdown stops every
// component in reverse registration order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(dbComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(server.NewComponent(srv))
//	})
//	err = app.Run(ctx)
package bootstrap
