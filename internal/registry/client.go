// Package registry is the facade over the two upstream inventories: the donor
// registry (organs) and the recipient registry (needs). It owns all wire-shape
// normalization so the matching engine only ever sees plain Organ/Need values.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"lifeline/internal/match"
	dErrors "lifeline/pkg/domain-errors"
)

// Organ is a donor-side inventory item. Read-only to this service apart from
// consumption deletes.
type Organ struct {
	ID        string
	DonorID   string
	Type      match.OrganType
	BloodType string
}

// Need is a recipient-side requirement.
type Need struct {
	ID          string
	RecipientID string
	OrganType   match.OrganType
	BloodType   string
	Urgency     int
}

// Client is the uniform read/delete surface over both registries.
type Client interface {
	ListOrgans(ctx context.Context) ([]Organ, error)
	ListNeeds(ctx context.Context) ([]Need, error)
	DeleteOrgan(ctx context.Context, id string) error
	DeleteNeed(ctx context.Context, id string) error
}

// HTTPClient talks to the donor and recipient registries over HTTP. Donor
// blood types missing from the organ representation are backfilled with a
// per-donor lookup; those lookups are cached because they dominate the latency
// of a pass over a large inventory.
type HTTPClient struct {
	donorBase     string
	recipientBase string
	http          *http.Client
	donorCache    *gocache.Cache
}

const donorCacheTTL = 5 * time.Minute

func NewHTTPClient(donorBase, recipientBase string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		donorBase:     trimSlash(donorBase),
		recipientBase: trimSlash(recipientBase),
		http:          &http.Client{Timeout: timeout},
		donorCache:    gocache.New(donorCacheTTL, 10*time.Minute),
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// envelope covers the upstream variants: a bare array, or {"data": [...]}
// where the items may themselves be {"data": {...}}-wrapped.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrapList normalizes a list body into the raw item messages.
func unwrapList(body []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return unwrapItems(items), nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil, fmt.Errorf("unrecognized list shape")
	}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("unrecognized enveloped list shape: %w", err)
	}
	return unwrapItems(items), nil
}

func unwrapItems(items []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var env envelope
		if err := json.Unmarshal(item, &env); err == nil && env.Data != nil {
			out = append(out, env.Data)
			continue
		}
		out = append(out, item)
	}
	return out
}

type organWire struct {
	ID        string `json:"id"`
	DonorID   string `json:"donor_id"`
	Type      string `json:"type"`
	BloodType string `json:"blood_type"`
}

type needWire struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	OrganType   string `json:"organ_type"`
	BloodType   string `json:"blood_type"`
	Urgency     int    `json:"urgency"`
}

type donorWire struct {
	ID        string `json:"id"`
	BloodType string `json:"blood_type"`
}

func (c *HTTPClient) ListOrgans(ctx context.Context) ([]Organ, error) {
	body, err := c.get(ctx, "donor", c.donorBase+"/organs")
	if err != nil {
		return nil, err
	}
	items, err := unwrapList(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "donor registry returned malformed organs")
	}

	organs := make([]Organ, 0, len(items))
	for _, item := range items {
		var w organWire
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "donor registry returned malformed organ")
		}
		organ := Organ{ID: w.ID, DonorID: w.DonorID, Type: match.OrganType(w.Type), BloodType: w.BloodType}
		if organ.BloodType == "" && organ.DonorID != "" {
			bt, err := c.donorBloodType(ctx, organ.DonorID)
			if err != nil {
				return nil, err
			}
			organ.BloodType = bt
		}
		organs = append(organs, organ)
	}
	return organs, nil
}

// donorBloodType backfills the blood type for organs whose upstream
// representation omits it. One round trip per distinct donor per TTL window.
func (c *HTTPClient) donorBloodType(ctx context.Context, donorID string) (string, error) {
	if bt, ok := c.donorCache.Get(donorID); ok {
		return bt.(string), nil
	}
	body, err := c.get(ctx, "donor", c.donorBase+"/donors/"+donorID)
	if err != nil {
		return "", err
	}
	raw := json.RawMessage(body)
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		raw = env.Data
	}
	var d donorWire
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "donor registry returned malformed donor")
	}
	c.donorCache.Set(donorID, d.BloodType, gocache.DefaultExpiration)
	return d.BloodType, nil
}

func (c *HTTPClient) ListNeeds(ctx context.Context) ([]Need, error) {
	body, err := c.get(ctx, "recipient", c.recipientBase+"/needs")
	if err != nil {
		return nil, err
	}
	items, err := unwrapList(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "recipient registry returned malformed needs")
	}

	needs := make([]Need, 0, len(items))
	for _, item := range items {
		var w needWire
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "recipient registry returned malformed need")
		}
		needs = append(needs, Need{
			ID:          w.ID,
			RecipientID: w.RecipientID,
			OrganType:   match.OrganType(w.OrganType),
			BloodType:   w.BloodType,
			Urgency:     w.Urgency,
		})
	}
	return needs, nil
}

func (c *HTTPClient) DeleteOrgan(ctx context.Context, id string) error {
	return c.delete(ctx, "donor", c.donorBase+"/organs/"+id)
}

func (c *HTTPClient) DeleteNeed(ctx context.Context, id string) error {
	return c.delete(ctx, "recipient", c.recipientBase+"/needs/"+id)
}

func (c *HTTPClient) get(ctx context.Context, registry, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build registry request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s registry unreachable", registry))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s registry returned %d for GET %s", registry, resp.StatusCode, req.URL.Path))
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) delete(ctx context.Context, registry, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build registry request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s registry unreachable", registry))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s registry returned %d for DELETE %s", registry, resp.StatusCode, req.URL.Path))
	}
	return nil
}
