package osint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const maxProbeBody = 1 << 20 // 1 MiB per response is plenty for every endpoint

var linkedinRx = regexp.MustCompile(`https?://(?:[a-z]{2,3}\.)?linkedin\.com/company/[A-Za-z0-9_-]+`)

// HTTPProber implements the DomainProber and IPProber ports against the
// public OSINT endpoints: RDAP for registration metadata, crt.sh for
// certificate transparency, the sender's own site for security.txt and
// a LinkedIn company link, and the key-gated urlscan.io and AbuseIPDB
// APIs. Probes with no configured API key report unknown, not failure,
// so the aggregator can still cache the rest of the snapshot.
type HTTPProber struct {
	client     *http.Client
	urlscanKey string
	abuseKey   string
	logger     *zap.Logger
}

// NewHTTPProber creates a new OSINT prober. connectTimeout bounds the
// TCP/TLS dial, totalTimeout the whole request.
func NewHTTPProber(connectTimeout, totalTimeout time.Duration, urlscanKey, abuseKey string, logger *zap.Logger) *HTTPProber {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConns:        10,
	}
	return &HTTPProber{
		client: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
		urlscanKey: urlscanKey,
		abuseKey:   abuseKey,
		logger:     logger,
	}
}

// RegistrationMeta queries rdap.org for the registration date and
// registrant name of a domain.
func (p *HTTPProber) RegistrationMeta(ctx context.Context, domain string) (string, string, error) {
	var doc struct {
		Events []struct {
			EventAction string `json:"eventAction"`
			EventDate   string `json:"eventDate"`
		} `json:"events"`
		Entities []struct {
			VcardArray []json.RawMessage `json:"vcardArray"`
		} `json:"entities"`
	}
	if err := p.getJSON(ctx, "https://rdap.org/domain/"+url.PathEscape(domain), nil, &doc); err != nil {
		return "", "", err
	}

	var registered string
	for _, ev := range doc.Events {
		if ev.EventAction == "registration" {
			registered = ev.EventDate
			break
		}
	}

	registrant := ""
	for _, ent := range doc.Entities {
		if name := vcardFN(ent.VcardArray); name != "" {
			registrant = name
			break
		}
	}
	return registered, registrant, nil
}

// vcardFN digs the "fn" property out of a jCard array:
// ["vcard", [["fn", {}, "text", "Example Inc."], ...]].
func vcardFN(arr []json.RawMessage) string {
	if len(arr) < 2 {
		return ""
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(arr[1], &props); err != nil {
		return ""
	}
	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		var key string
		if err := json.Unmarshal(prop[0], &key); err != nil || key != "fn" {
			continue
		}
		var val string
		if err := json.Unmarshal(prop[3], &val); err == nil && val != "" {
			return val
		}
	}
	return ""
}

// SecurityTxtPresent checks the two RFC 9116 locations for a
// security.txt file. A 404 on both is a real measurement (false), not
// an error.
func (p *HTTPProber) SecurityTxtPresent(ctx context.Context, domain string) (bool, error) {
	paths := []string{
		"https://" + domain + "/.well-known/security.txt",
		"https://" + domain + "/security.txt",
	}
	var lastErr error
	for _, u := range paths {
		status, _, err := p.get(ctx, u, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusOK {
			return true, nil
		}
	}
	if lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

// CertificateCount counts certificate transparency log entries for the
// domain via crt.sh. A 404 means the domain has no entries at all.
func (p *HTTPProber) CertificateCount(ctx context.Context, domain string) (*int, error) {
	u := "https://crt.sh/?q=" + url.QueryEscape("%."+domain) + "&output=json"
	status, body, err := p.get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		zero := 0
		return &zero, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("crt.sh returned status %d", status)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse crt.sh response: %w", err)
	}
	count := len(entries)
	return &count, nil
}

// WebPresence fetches the domain homepage and looks for a LinkedIn
// company link, a cheap signal that a real organization sits behind the
// domain.
func (p *HTTPProber) WebPresence(ctx context.Context, domain string) (bool, string, error) {
	status, body, err := p.get(ctx, "https://"+domain+"/", nil)
	if err != nil {
		return false, "", err
	}
	if status != http.StatusOK {
		return false, "", nil
	}
	if match := linkedinRx.Find(body); match != nil {
		return true, string(match), nil
	}
	return false, "", nil
}

// URLScanTotal queries urlscan.io for the number of scans mentioning
// the domain. Reports unknown when no API key is configured.
func (p *HTTPProber) URLScanTotal(ctx context.Context, domain string) (*int, error) {
	if p.urlscanKey == "" {
		return nil, nil
	}
	var doc struct {
		Total int `json:"total"`
	}
	u := "https://urlscan.io/api/v1/search/?q=" + url.QueryEscape("domain:"+domain)
	headers := map[string]string{"API-Key": p.urlscanKey}
	if err := p.getJSON(ctx, u, headers, &doc); err != nil {
		return nil, err
	}
	total := doc.Total
	return &total, nil
}

// AbuseConfidence queries AbuseIPDB for the abuse confidence score of
// an IP. Reports unknown when no API key is configured.
func (p *HTTPProber) AbuseConfidence(ctx context.Context, ip string) (*int, error) {
	if p.abuseKey == "" {
		return nil, nil
	}
	var doc struct {
		Data struct {
			AbuseConfidenceScore int `json:"abuseConfidenceScore"`
		} `json:"data"`
	}
	u := "https://api.abuseipdb.com/api/v2/check?maxAgeInDays=90&ipAddress=" + url.QueryEscape(ip)
	headers := map[string]string{
		"Key":    p.abuseKey,
		"Accept": "application/json",
	}
	if err := p.getJSON(ctx, u, headers, &doc); err != nil {
		return nil, err
	}
	score := doc.Data.AbuseConfidenceScore
	return &score, nil
}

func (p *HTTPProber) get(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "mailshield/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (p *HTTPProber) getJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	status, body, err := p.get(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", status, rawURL)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", rawURL, err)
	}
	return nil
}
