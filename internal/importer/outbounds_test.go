package importer

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeVmess(t *testing.T, link string) vmessLink {
	t.Helper()
	if !strings.HasPrefix(link, "vmess://") {
		t.Fatalf("link %q does not start with vmess://", link)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(link, "vmess://"))
	if err != nil {
		t.Fatalf("vmess payload is not valid base64: %v", err)
	}
	var v vmessLink
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("vmess payload is not valid JSON: %v", err)
	}
	return v
}

func TestImportOutbounds_VmessMinimal(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vmess",
	    "settings": {"vnext": [{"address": "h", "port": 443, "users": [{"id": "u1"}]}]}
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	v := decodeVmess(t, links[0])
	if v.Add != "h" || v.Port != 443 || v.ID != "u1" {
		t.Fatalf("add=%q port=%d id=%q, want h/443/u1", v.Add, v.Port, v.ID)
	}
	if v.V != "2" {
		t.Fatalf("v=%q, want=%q", v.V, "2")
	}
	if v.Net != "tcp" {
		t.Fatalf("net=%q, want default tcp", v.Net)
	}
	if v.PS != "imported" {
		t.Fatalf("ps=%q, want placeholder imported", v.PS)
	}
	if v.TLS != "" {
		t.Fatalf("tls=%q, want empty without tls security", v.TLS)
	}
}

func TestImportOutbounds_VmessWebSocketTLS(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vmess",
	    "remark": "outbound-name",
	    "settings": {"vnext": [{"address": "example.com", "port": 8443, "users": [{"id": "u1", "alterId": 4}]}]},
	    "streamSettings": {
	      "network": "ws",
	      "security": "tls",
	      "wsSettings": {"path": "/ws", "headers": {"Host": "cdn.example.com"}}
	    }
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := decodeVmess(t, links[0])
	if v.PS != "outbound-name" {
		t.Fatalf("ps=%q, want outbound remark fallback", v.PS)
	}
	if v.Aid != 4 {
		t.Fatalf("aid=%d, want=4", v.Aid)
	}
	if v.Net != "ws" || v.Host != "cdn.example.com" || v.Path != "/ws" {
		t.Fatalf("net=%q host=%q path=%q, want ws/cdn.example.com//ws", v.Net, v.Host, v.Path)
	}
	if v.TLS != "tls" {
		t.Fatalf("tls=%q, want=%q", v.TLS, "tls")
	}
}

func TestImportOutbounds_VmessHTTPSettingsFallback(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vmess",
	    "settings": {"vnext": [{"address": "h", "port": 80, "users": [{"id": "u"}]}]},
	    "streamSettings": {
	      "network": "http",
	      "httpSettings": {"path": "/h2", "host": ["h2.example.com", "h2b.example.com"]}
	    }
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := decodeVmess(t, links[0])
	if v.Host != "h2.example.com" || v.Path != "/h2" {
		t.Fatalf("host=%q path=%q, want h2.example.com//h2", v.Host, v.Path)
	}
}

func TestImportOutbounds_VmessMultipleEndpoints(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vmess",
	    "settings": {"vnext": [
	      {"remark": "ep-1", "address": "a", "port": 1, "users": [{"id": "u"}]},
	      {"remark": "ep-2", "address": "b", "port": 2, "users": [{"id": "u"}]}
	    ]}
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2 (one per endpoint)", len(links))
	}
	if v := decodeVmess(t, links[0]); v.PS != "ep-1" {
		t.Fatalf("ps=%q, want endpoint remark ep-1", v.PS)
	}
}

func TestImportOutbounds_Vless(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vless",
	    "remark": "my node",
	    "settings": {"vnext": [{"address": "example.com", "port": 443,
	      "users": [{"id": "uuid-1", "flow": "xtls-rprx-vision"}]}]},
	    "streamSettings": {
	      "network": "ws",
	      "security": "tls",
	      "wsSettings": {"path": "/a b", "headers": {"Host": "ws.example.com"}}
	    }
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	want := "vless://uuid-1@example.com:443" +
		"?type=ws&security=tls&path=%2Fa%20b&host=ws.example.com&flow=xtls-rprx-vision&encryption=none" +
		"#my%20node"
	if links[0] != want {
		t.Fatalf("link=%q\nwant=%q", links[0], want)
	}
}

func TestImportOutbounds_VlessDefaults(t *testing.T) {
	cfg := `{
	  "outbounds": [{
	    "protocol": "vless",
	    "settings": {"vnext": [{"address": "h", "port": 1, "users": [{"id": "u"}]}]}
	  }]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "vless://u@h:1?type=tcp&security=none&path=&host=&flow=&encryption=none#imported"
	if links[0] != want {
		t.Fatalf("link=%q\nwant=%q", links[0], want)
	}
}

func TestImportOutbounds_UnknownProtocolIgnored(t *testing.T) {
	cfg := `{
	  "outbounds": [
	    {"protocol": "freedom"},
	    {"protocol": "socks", "settings": {"vnext": [{"address": "h", "port": 1, "users": [{"id": "u"}]}]}}
	  ]
	}`
	links, err := ImportOutbounds(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("got %d links, want 0", len(links))
	}
}

func TestImportOutbounds_MalformedJSON(t *testing.T) {
	_, err := ImportOutbounds("{not json")
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if ie.AppError.Code != "CONFIG_PARSE_ERROR" {
		t.Fatalf("code=%q, want=%q", ie.AppError.Code, "CONFIG_PARSE_ERROR")
	}
}

func TestImportOutbounds_MissingOutbounds(t *testing.T) {
	_, err := ImportOutbounds(`{"inbounds": []}`)
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if ie.AppError.Code != "CONFIG_PARSE_ERROR" {
		t.Fatalf("code=%q, want=%q", ie.AppError.Code, "CONFIG_PARSE_ERROR")
	}
}
