package repository

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"cropmap_service/internal/domain/model"

	"github.com/patrickmn/go-cache"
	"github.com/serjvanilla/go-overpass"
)

var ErrDistrictNotFound = model.ErrDistrictNotFound

const (
	locatorCacheTTL     = 24 * time.Hour
	locatorCacheCleanup = 48 * time.Hour
)

// OverpassRepository places districts on the map using OpenStreetMap place
// nodes named after the district.
type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
	cache   *cache.Cache
}

func NewOverpassRepository(endpoint string, timeout time.Duration) *OverpassRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
		cache:   cache.New(locatorCacheTTL, locatorCacheCleanup),
	}
}

// LocateDistrict returns the position of the best matching city or town node.
// Misses are cached as well, so an unknown district costs one query per TTL.
func (r *OverpassRepository) LocateDistrict(ctx context.Context, state, district string) (model.Coordinate, error) {
	key := strings.ToLower(state + "|" + district)
	if v, ok := r.cache.Get(key); ok {
		if loc, ok := v.(model.Coordinate); ok {
			return loc, nil
		}
		return model.Coordinate{}, ErrDistrictNotFound
	}

	query := fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			node["place"~"^(city|town)$"]["name"~"^%s$",i];
		);
		out body;
	`, int(r.timeout.Seconds()), quoteName(district))

	result, err := r.executeQuery(ctx, query)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to locate district %q: %w", district, err)
	}

	loc, ok := pickPlace(result)
	if !ok {
		r.cache.SetDefault(key, false)
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrDistrictNotFound, district)
	}
	r.cache.SetDefault(key, loc)
	return loc, nil
}

// executeQuery runs the query off the caller's goroutine so a cancelled ctx
// returns at once; the abandoned request is still bounded by the client timeout.
func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type response struct {
		result overpass.Result
		err    error
	}
	done := make(chan response, 1)

	start := time.Now()
	go func() {
		result, err := r.client.Query(query)
		done <- response{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-done:
		if resp.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", resp.err)
		}
		log.Printf("[overpass] query returned %d nodes in %v", len(resp.result.Nodes), time.Since(start).Round(time.Millisecond))
		return &resp.result, nil
	}
}

// pickPlace prefers cities over towns and breaks ties by lowest node id so the
// answer does not depend on map iteration order.
func pickPlace(result *overpass.Result) (model.Coordinate, bool) {
	nodes := make([]*overpass.Node, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	if len(nodes) == 0 {
		return model.Coordinate{}, false
	}
	sort.Slice(nodes, func(i, j int) bool {
		ci, cj := nodes[i].Tags["place"] == "city", nodes[j].Tags["place"] == "city"
		if ci != cj {
			return ci
		}
		return nodes[i].ID < nodes[j].ID
	})
	return model.Coordinate{Lat: nodes[0].Lat, Lon: nodes[0].Lon}, true
}

// quoteName makes a district name safe inside an Overpass regex literal.
func quoteName(name string) string {
	q := regexp.QuoteMeta(strings.TrimSpace(name))
	q = strings.ReplaceAll(q, `"`, `\"`)
	return q
}
