// Package mongo connects to MongoDB for the accessgate usage store and
// catalog.
//
// Configuration comes from MONGODB_* environment variables via Config. New
// retries the initial connection and ping, and Healthcheck adapts a client to
// the server's readiness probe.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	usage := mongostore.New(db)
//
// Connection failures wrap ErrFailedToConnectToMongo and can be matched with
// errors.Is.
package mongo
