package importer

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type clashDoc struct {
	Proxies []clashProxy `yaml:"proxies"`
}

type clashProxy struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Server     string         `yaml:"server"`
	Port       int            `yaml:"port"`
	Cipher     string         `yaml:"cipher"`
	Password   string         `yaml:"password"`
	Plugin     string         `yaml:"plugin"`
	PluginOpts map[string]any `yaml:"plugin-opts"`
}

// ImportClashYAML converts the ss proxies of a Clash configuration into
// canonical SIP002 ss:// links. Proxy types other than ss are skipped.
func ImportClashYAML(configText string) ([]string, error) {
	var doc clashDoc
	if err := yaml.Unmarshal([]byte(configText), &doc); err != nil {
		return nil, newImportError("CONFIG_PARSE_ERROR", "配置 YAML 解析失败", err.Error(), err)
	}
	if doc.Proxies == nil {
		return nil, newImportError("CONFIG_PARSE_ERROR", "配置缺少 proxies 数组", "expected: proxies: [...]", nil)
	}

	links := make([]string, 0)
	for _, p := range doc.Proxies {
		if p.Type != "ss" {
			continue
		}
		if p.Server == "" || p.Port == 0 || p.Cipher == "" || p.Password == "" {
			continue
		}
		links = append(links, canonicalSSURI(p))
	}
	return links, nil
}

func canonicalSSURI(p clashProxy) string {
	userInfo := strings.ToLower(p.Cipher) + ":" + p.Password
	userB64 := base64.RawURLEncoding.EncodeToString([]byte(userInfo))

	var b strings.Builder
	b.WriteString("ss://")
	b.WriteString(userB64)
	b.WriteByte('@')
	b.WriteString(uriHost(p.Server))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(p.Port))

	if strings.TrimSpace(p.Plugin) != "" {
		var pb strings.Builder
		pb.WriteString(strings.TrimSpace(p.Plugin))
		// Sort option keys: YAML maps have no order and the generated link
		// must be deterministic.
		keys := make([]string, 0, len(p.PluginOpts))
		for k := range p.PluginOpts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pb.WriteByte(';')
			pb.WriteString(k)
			pb.WriteByte('=')
			pb.WriteString(optValue(p.PluginOpts[k]))
		}
		b.WriteString("/?plugin=")
		b.WriteString(pctEncode(pb.String()))
	}

	if p.Name != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Name))
	}
	return b.String()
}

func optValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
