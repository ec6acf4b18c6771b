package amazon

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	Service         = "ProductAdvertisingAPI"
	GetItemsTarget  = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	GetItemsPath    = "/paapi5/getitems"
	contentType     = "application/json; charset=utf-8"
	contentEncoding = "amz-1.0"

	DefaultMarketplace = "www.amazon.com.br"
	DefaultRegion      = "us-east-1"

	maxUpstreamBody = 1 << 20
)

var ErrMissingCredentials = errors.New("missing amazon credentials")

type Credentials struct {
	AccessKey  string
	SecretKey  string
	PartnerTag string
}

// HostFor maps a marketplace ("www.amazon.com.br") to its PA-API host.
func HostFor(marketplace string) string {
	return "webservices." + strings.TrimPrefix(strings.ToLower(strings.TrimSpace(marketplace)), "www.")
}

// Signer produces SigV4 headers for PA-API GetItems calls.
type Signer struct {
	signer *v4.Signer
	now    func() time.Time
}

func NewSigner() *Signer {
	return &Signer{signer: v4.NewSigner(), now: time.Now}
}

// SignGetItems returns the full header set for POST https://host+path with payload.
func (s *Signer) SignGetItems(ctx context.Context, creds Credentials, host, region, path string, payload []byte) (http.Header, error) {
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return nil, ErrMissingCredentials
	}
	if path == "" {
		path = GetItemsPath
	}
	if region == "" {
		region = DefaultRegion
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+host+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build paapi request: %w", err)
	}
	req.Header.Set("Content-Encoding", contentEncoding)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Target", GetItemsTarget)

	sum := sha256.Sum256(payload)
	err = s.signer.SignHTTP(ctx, aws.Credentials{
		AccessKeyID:     creds.AccessKey,
		SecretAccessKey: creds.SecretKey,
	}, req, hex.EncodeToString(sum[:]), Service, region, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sign paapi request: %w", err)
	}

	h := req.Header.Clone()
	h.Set("Host", host)
	return h, nil
}

type getItemsPayload struct {
	ItemIDs     []string `json:"ItemIds"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

var defaultResources = []string{
	"Images.Primary.Large",
	"ItemInfo.Title",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
}

// UpstreamError carries a non-2xx PA-API response.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("paapi returned status %d", e.StatusCode)
}

type Client struct {
	http   *http.Client
	signer *Signer
	// endpoint maps a PA-API host to the base URL requests go to.
	endpoint func(host string) string
}

func NewClient(timeout time.Duration, signer *Signer) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		signer:   signer,
		endpoint: func(host string) string { return "https://" + host },
	}
}

func (c *Client) GetItems(ctx context.Context, creds Credentials, marketplace, region, asin string) (json.RawMessage, error) {
	if creds.PartnerTag == "" {
		return nil, ErrMissingCredentials
	}
	if marketplace == "" {
		marketplace = DefaultMarketplace
	}

	payload, err := json.Marshal(getItemsPayload{
		ItemIDs:     []string{asin},
		PartnerTag:  creds.PartnerTag,
		PartnerType: "Associates",
		Marketplace: marketplace,
		Resources:   defaultResources,
	})
	if err != nil {
		return nil, err
	}

	host := HostFor(marketplace)
	headers, err := c.signer.SignGetItems(ctx, creds, host, region, GetItemsPath, payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(host)+GetItemsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header = headers
	req.Host = host

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("read paapi response: %w", err)
	}
	if !json.Valid(body) {
		body, _ = json.Marshal(string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
