// Package bootstrap runs a reqkit host process: it initializes logging from
// the service config, starts registered components in order, runs a task,
// and shuts everything down on completion or SIGINT/SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(apiclient.NewComponent(cfg.API))
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return work(ctx)
//	})
package bootstrap
