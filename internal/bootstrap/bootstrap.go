// Package bootstrap builds the storage, cache and services both binaries run on.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"venue_hotel/internal/adapters/beds24"
	"venue_hotel/internal/adapters/memcache"
	redisad "venue_hotel/internal/adapters/redis"
	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
	"venue_hotel/internal/shared"
	"venue_hotel/internal/storage/memory"
	mysqlrepo "venue_hotel/internal/storage/mysql"
)

type Services struct {
	Pricing  *app.PricingService
	Bookings *app.BookingService
	Payments *app.PaymentService
	Cash     *app.CashService
	Checkin  *app.CheckinService
	Weddings *app.WeddingService
	Channel  *app.ChannelSyncService

	closers []func() error
}

// Close releases connections in reverse order of opening.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func Build(ctx context.Context, cfg shared.Config) (*Services, error) {
	s := &Services{}

	var store domain.Store
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		store = memory.New()
	default:
		db, err := mysqlrepo.Open(ctx, cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		log.Info().Msg("database connection ok")
		if cfg.Storage.Migrate {
			if err := mysqlrepo.Apply(ctx, db); err != nil {
				s.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("migrations applied")
		}
		store = mysqlrepo.New(db)
	}

	var cache domain.Cache
	if cfg.Cache.RedisAddr != "" {
		rc := redisad.New(cfg.Cache.RedisAddr, cfg.Cache.RedisPass, cfg.Cache.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			_ = rc.Close()
			s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.closers = append(s.closers, rc.Close)
		cache = rc
	} else {
		log.Info().Msg("REDIS_ADDR empty; using in-process cache")
		cache = memcache.New(time.Minute)
	}

	var channel domain.ChannelClient = beds24.Disabled{}
	if cfg.Beds24.Token != "" {
		c, err := beds24.New(cfg.Beds24.BaseURL, cfg.Beds24.Token, cfg.Beds24.RPS)
		if err != nil {
			s.Close()
			return nil, err
		}
		channel = c
	} else {
		log.Warn().Msg("BEDS24_TOKEN empty; channel sync is disabled")
	}

	p := cfg.Property
	s.Pricing = app.NewPricingService(store, store, store, cache, cfg.Cache.TTL, p.Currency)
	s.Bookings = app.NewBookingService(s.Pricing, store, store, store)
	s.Payments = app.NewPaymentService(store, store)
	s.Cash = app.NewCashService(store, store, p.CashTolerance)
	s.Checkin = app.NewCheckinService(store, store, store, p.CheckinWindowDays)
	s.Weddings = app.NewWeddingService(store, p.ProposalValidDays)
	s.Channel = app.NewChannelSyncService(channel, store, store, store, s.Pricing, cfg.Sync.Workers)
	return s, nil
}
