package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	tls2 "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// directFetcher downloads an export href over plain HTTP with a Chrome TLS
// fingerprint (utls), reusing the browser session's cookies. Last-resort
// path for when every export control resists clicking but the page exposes
// an absolute spreadsheet URL.
type directFetcher struct {
	proxy string
}

func newDirectFetcher(proxy string) *directFetcher {
	return &directFetcher{proxy: proxy}
}

// fetch retrieves fileURL and writes the body into destDir, returning the
// written path. The resulting file goes through the same watcher
// stabilization as a browser-initiated download.
func (f *directFetcher) fetch(ctx context.Context, fileURL, cookieHeader, destDir string) (string, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, f.proxy)
		},
	}
	if f.proxy != "" {
		if proxyURL, err := url.Parse(f.proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("directfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("directfetch: HTTP %d for %s", resp.StatusCode, fileURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024)) // 50 MB cap
	if err != nil {
		return "", fmt.Errorf("directfetch: read body: %w", err)
	}

	dest := filepath.Join(destDir, filenameFor(fileURL, resp.Header))
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", fmt.Errorf("directfetch: write file: %w", err)
	}
	return dest, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{}

	if proxy != "" {
		if proxyURL, parseErr := url.Parse(proxy); parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksConn, socksErr := dialer.DialContext(ctx, "tcp", proxyURL.Host)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dial: %w", socksErr)
			}
			rawConn = socksConn
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// filenameFor picks a destination filename: Content-Disposition, then the
// URL path, then a timestamped name with an extension from the MIME type.
func filenameFor(fileURL string, hdr http.Header) string {
	if cd := hdr.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				return filepath.Base(fn)
			}
		}
	}
	if u, err := url.Parse(fileURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && filepath.Ext(base) != "" {
			return base
		}
	}
	return "export_" + time.Now().Format("20060102_150405") + extFromContentType(hdr.Get("Content-Type"))
}

func extFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return ".xlsx"
	case strings.Contains(ct, "csv"):
		return ".csv"
	default:
		return ".xls"
	}
}
