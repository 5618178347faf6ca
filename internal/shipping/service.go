package shipping

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront-proxy/internal/model"
	"storefront-proxy/internal/woocommerce"
)

// API is the REST v3 shipping surface of the WooCommerce client.
type API interface {
	ListShippingZones(ctx context.Context) ([]woocommerce.ShippingZone, error)
	ZoneLocations(ctx context.Context, zoneID int) ([]woocommerce.ZoneLocation, error)
	ZoneMethods(ctx context.Context, zoneID int) ([]woocommerce.ShippingMethod, error)
}

// Rate is one shipping option on the resolved zone.
type Rate struct {
	RateID     string `json:"rate_id"` // "flat_rate:3", the Store API rate id
	MethodID   string `json:"method_id"`
	InstanceID int    `json:"instance_id"`
	Title      string `json:"title"`
	Cost       string `json:"cost"`
	Free       bool   `json:"free"`
	// MinAmount is the free shipping threshold, if configured.
	MinAmount string `json:"min_amount,omitempty"`
}

// Resolution is the response of GET /api/shipping.
type Resolution struct {
	ZoneID   int         `json:"zone_id"`
	ZoneName string      `json:"zone_name"`
	Rates    []Rate      `json:"rates"`
	Address  Destination `json:"address"`
}

// Service resolves zones and rates.
type Service struct {
	api    API
	places int
	logger *slog.Logger
}

// New creates a shipping service. places is the number of decimals costs are rendered with.
func New(api API, places int, logger *slog.Logger) *Service {
	if places <= 0 {
		places = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, places: places, logger: logger}
}

// Resolve finds the zone of d and lists its enabled methods as rates.
func (s *Service) Resolve(ctx context.Context, d Destination) (*Resolution, error) {
	if d.Country == "" {
		return nil, model.NewMissingFieldError("country")
	}

	zones, err := s.zones(ctx)
	if err != nil {
		return nil, err
	}
	zone, ok := Match(zones, d)
	if !ok {
		return nil, model.NewNotFoundError("shipping_zone")
	}

	methods, err := s.api.ZoneMethods(ctx, zone.ID)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "shipping zone resolved",
		slog.Int("zone_id", zone.ID),
		slog.String("country", d.Country),
		slog.Int("methods", len(methods)),
	)

	return &Resolution{
		ZoneID:   zone.ID,
		ZoneName: zone.Name,
		Rates:    s.rates(methods),
		Address:  d.normalized(),
	}, nil
}

// zones fetches all zones and their locations. Locations are fetched concurrently.
func (s *Service) zones(ctx context.Context) ([]Zone, error) {
	list, err := s.api.ListShippingZones(ctx)
	if err != nil {
		return nil, err
	}

	zones := make([]Zone, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, z := range list {
		zones[i].ShippingZone = z
		if z.ID == 0 {
			continue
		}
		g.Go(func() error {
			locs, err := s.api.ZoneLocations(gctx, z.ID)
			if err != nil {
				return err
			}
			zones[i].Locations = locs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return zones, nil
}

func (s *Service) rates(methods []woocommerce.ShippingMethod) []Rate {
	sorted := append([]woocommerce.ShippingMethod(nil), methods...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	rates := make([]Rate, 0, len(sorted))
	for _, m := range sorted {
		if !m.Enabled {
			continue
		}
		r := Rate{
			RateID:     m.MethodID + ":" + strconv.Itoa(m.InstanceID),
			MethodID:   m.MethodID,
			InstanceID: m.InstanceID,
			Title:      m.Title,
		}
		if r.Title == "" {
			r.Title = m.MethodTitle
		}

		switch raw := m.Setting("cost"); {
		case m.MethodID == "free_shipping":
			r.Free = true
			r.Cost = model.FormatAmount(decimal.Zero, s.places)
			if threshold := model.ParseAmount(m.Setting("min_amount")); threshold.Valid && threshold.Decimal.IsPositive() {
				r.MinAmount = model.FormatAmount(threshold.Decimal, s.places)
			}
		case raw == "":
			r.Free = true
			r.Cost = model.FormatAmount(decimal.Zero, s.places)
		default:
			// Costs may be formulas ("2 * [qty]"); those are passed through unevaluated.
			if c := model.ParseAmount(raw); c.Valid {
				r.Cost = model.FormatAmount(c.Decimal, s.places)
				r.Free = c.Decimal.IsZero()
			} else {
				r.Cost = raw
			}
		}
		rates = append(rates, r)
	}
	return rates
}
