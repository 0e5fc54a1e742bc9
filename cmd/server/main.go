package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/config"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/database"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/handler"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/middleware"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/queue"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	services := repository.NewServiceRepo(db)
	bookings := repository.NewBookingRepo(db)
	threads := repository.NewThreadRepo(db)
	messages := repository.NewMessageRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	listingHandler := handler.NewListingHandler(listings, services)
	bookingHandler := handler.NewBookingHandler(cfg, bookings, services, listings)
	threadHandler := handler.NewThreadHandler(cfg, threads, messages, listings, users)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rdb := config.NewRedisClient()
	if rdb != nil {
		rl := config.LoadRateLimitConfig()
		if rl.Enabled {
			e.Use(middleware.NewTokenBucket(rl, rdb))
		}
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)

	// The public catalogue is the only read-heavy guest surface, so it
	// alone goes through the Redis response cache.
	var publicMW []echo.MiddlewareFunc
	if rdb != nil {
		cc := config.LoadCacheConfig()
		if cc.Enabled {
			publicMW = append(publicMW, middleware.NewRedisCache(cc, rdb))
		}
	}
	router.RegisterPublic(e, listingHandler, publicMW...)

	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret)
	router.RegisterBusiness(e, listingHandler, cfg.JWTSecret)
	router.RegisterThreads(e, threadHandler, cfg.JWTSecret)
	router.RegisterStaff(e, listingHandler, threadHandler, cfg.JWTSecret)

	// Booking events fan out to the notification log through RabbitMQ.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
