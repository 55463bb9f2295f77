package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes はバックエンドURLに許可されるスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はプライベート接続を拒否する場合にブロックするネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// BackendGuard は接続先バックエンドの検証とHTTPクライアントの生成を行う。
type BackendGuard struct {
	blockPrivate bool
}

// NewBackendGuard はBackendGuardの新しいインスタンスを生成する。
// blockPrivateがtrueの場合、プライベート・ループバック・リンクローカルへの接続を拒否する。
func NewBackendGuard(blockPrivate bool) *BackendGuard {
	return &BackendGuard{blockPrivate: blockPrivate}
}

// ValidateURL はバックエンドURLを静的に検証する。
// スキームはhttp/httpsのみ、ホストは必須。プライベート接続を拒否する設定では
// IPアドレスとlocalhostも検証する。DNS解決後の検証はNewHTTPClientのクライアントが行う。
func (g *BackendGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if !g.blockPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// NewHTTPClient はバックエンド用のHTTPクライアントを生成する。
// プライベート接続を拒否する設定では、safeurlがDNS解決後のIPアドレスも検証する。
// 許可ポートは80、443とURLに明示されたポート。
func (g *BackendGuard) NewHTTPClient(rawURL string, timeout time.Duration) (*http.Client, error) {
	if err := g.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	if !g.blockPrivate {
		return &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}, nil
	}

	ports := []int{80, 443}
	parsed, _ := url.Parse(rawURL)
	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		ports = append(ports, port)
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(ports...).
		Build()

	return safeurl.Client(config).Client, nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
