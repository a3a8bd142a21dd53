// Package mongo connects to MongoDB with retries and exposes a readiness probe.
//
//	db, err := mongo.NewDatabase(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store := notifications.NewMongoStorage(db)
//	health := mongo.Healthcheck(db.Client())
package mongo
