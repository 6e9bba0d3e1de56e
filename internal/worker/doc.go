// Package worker implements the calculator stream worker and its health
// endpoints.
//
// When REDIS_ENABLED is set, the worker joins a consumer group on STREAM_KEY
// and reads calculate or plot requests:
//
//	XADD calculator.work * data '{"operation":"plot","expression":"sin(x)","x_min":-5,"x_max":5}'
//
// Results are published to RESULT_STREAM and failures to RESULT_STREAM
// suffixed with ".errors". Every message is acknowledged, including the ones
// that fail to parse.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{...})
//	calc := calculator.NewCalculator(symbolic.NewParser(), numeric.NewNative(), renderer, logger)
//
//	w := worker.NewWorker(cfg, redisClient, calc, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(ctx)
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, redisClient, calc, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
