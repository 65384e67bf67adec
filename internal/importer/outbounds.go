package importer

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Outbound config document shape (subset we care about). Unknown fields and
// unknown protocols are ignored rather than rejected: partial imports are
// preferred over total failure.
type outboundsDoc struct {
	Outbounds []outbound `json:"outbounds"`
}

type outbound struct {
	Protocol string `json:"protocol"`
	Remark   string `json:"remark"`
	Settings struct {
		Vnext []vnextServer `json:"vnext"`
	} `json:"settings"`
	StreamSettings streamSettings `json:"streamSettings"`
}

type vnextServer struct {
	Remark  string      `json:"remark"`
	Address string      `json:"address"`
	Port    int         `json:"port"`
	Users   []vnextUser `json:"users"`
}

type vnextUser struct {
	ID         string `json:"id"`
	AlterID    int    `json:"alterId"`
	Flow       string `json:"flow"`
	Encryption string `json:"encryption"`
}

type streamSettings struct {
	Network    string `json:"network"`
	Security   string `json:"security"`
	WSSettings *struct {
		Path    string `json:"path"`
		Headers struct {
			Host string `json:"Host"`
		} `json:"headers"`
	} `json:"wsSettings"`
	HTTPSettings *struct {
		Path string   `json:"path"`
		Host []string `json:"host"`
	} `json:"httpSettings"`
}

// vmessLink is the payload behind vmess://. Key set and order follow the
// de-facto v2rayN share format.
type vmessLink struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port int    `json:"port"`
	ID   string `json:"id"`
	Aid  int    `json:"aid"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
}

// ImportOutbounds parses a client configuration and returns one share link
// per recognized server endpoint. vmess and vless outbounds are converted;
// anything else is skipped. A config without any recognized endpoint returns
// an empty slice and no error — "no valid nodes" is the caller's call.
func ImportOutbounds(configText string) ([]string, error) {
	var doc outboundsDoc
	if err := json.Unmarshal([]byte(configText), &doc); err != nil {
		return nil, newImportError("CONFIG_PARSE_ERROR", "配置 JSON 解析失败", err.Error(), err)
	}
	if doc.Outbounds == nil {
		return nil, newImportError("CONFIG_PARSE_ERROR", "配置缺少 outbounds 数组", "expected: {\"outbounds\": [...]}", nil)
	}

	links := make([]string, 0)
	for _, ob := range doc.Outbounds {
		switch ob.Protocol {
		case "vmess":
			for _, srv := range ob.Settings.Vnext {
				link, ok := vmessShareLink(ob, srv)
				if ok {
					links = append(links, link)
				}
			}
		case "vless":
			for _, srv := range ob.Settings.Vnext {
				link, ok := vlessShareLink(ob, srv)
				if ok {
					links = append(links, link)
				}
			}
		}
	}
	return links, nil
}

func displayName(ob outbound, srv vnextServer) string {
	if strings.TrimSpace(srv.Remark) != "" {
		return srv.Remark
	}
	if strings.TrimSpace(ob.Remark) != "" {
		return ob.Remark
	}
	return "imported"
}

func vmessShareLink(ob outbound, srv vnextServer) (string, bool) {
	if srv.Address == "" || len(srv.Users) == 0 {
		return "", false
	}
	user := srv.Users[0]

	ss := ob.StreamSettings
	network := ss.Network
	if network == "" {
		network = "tcp"
	}
	host, path := transportHostPath(ss)
	tlsFlag := ""
	if ss.Security == "tls" {
		tlsFlag = "tls"
	}

	payload, err := json.Marshal(vmessLink{
		V:    "2",
		PS:   displayName(ob, srv),
		Add:  srv.Address,
		Port: srv.Port,
		ID:   user.ID,
		Aid:  user.AlterID,
		Net:  network,
		Type: "none",
		Host: host,
		Path: path,
		TLS:  tlsFlag,
	})
	if err != nil {
		return "", false
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(payload), true
}

func vlessShareLink(ob outbound, srv vnextServer) (string, bool) {
	if srv.Address == "" || len(srv.Users) == 0 {
		return "", false
	}
	user := srv.Users[0]

	ss := ob.StreamSettings
	network := ss.Network
	if network == "" {
		network = "tcp"
	}
	security := ss.Security
	if security == "" {
		security = "none"
	}
	encryption := user.Encryption
	if encryption == "" {
		encryption = "none"
	}
	host, path := transportHostPath(ss)

	// Query key order is fixed so generated links are deterministic.
	var q strings.Builder
	q.WriteString("type=" + network)
	q.WriteString("&security=" + security)
	q.WriteString("&path=" + pctEncode(path))
	q.WriteString("&host=" + pctEncode(host))
	q.WriteString("&flow=" + pctEncode(user.Flow))
	q.WriteString("&encryption=" + pctEncode(encryption))

	var b strings.Builder
	b.WriteString("vless://")
	b.WriteString(user.ID)
	b.WriteByte('@')
	b.WriteString(uriHost(srv.Address))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(srv.Port))
	b.WriteByte('?')
	b.WriteString(q.String())
	b.WriteByte('#')
	b.WriteString(pctEncode(displayName(ob, srv)))
	return b.String(), true
}

func transportHostPath(ss streamSettings) (host, path string) {
	if ss.WSSettings != nil {
		return ss.WSSettings.Headers.Host, ss.WSSettings.Path
	}
	if ss.HTTPSettings != nil {
		h := ""
		if len(ss.HTTPSettings.Host) > 0 {
			h = ss.HTTPSettings.Host[0]
		}
		return h, ss.HTTPSettings.Path
	}
	return "", ""
}
