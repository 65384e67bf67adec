// Package group implements the administrative group operations: named
// collections of link references stored in the key-value substrate and
// served as aggregated feeds.
package group

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/submerge-go/internal/importer"
	"github.com/John-Robertt/submerge-go/internal/model"
	"github.com/John-Robertt/submerge-go/internal/store"
)

// KeyPrefix is the store namespace for groups; the full key is
// KeyPrefix + group ID.
const KeyPrefix = "SUBS_GROUP:"

type Error struct {
	AppError model.AppError
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func notFound(id string) error {
	return &Error{AppError: model.AppError{
		Code:    "GROUP_NOT_FOUND",
		Message: "分组不存在",
		Stage:   "group",
		Hint:    id,
	}}
}

func groupError(code, message, hint string, cause error) error {
	return &Error{AppError: model.AppError{
		Code:    code,
		Message: message,
		Stage:   "group",
		Hint:    hint,
	}, Cause: cause}
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create assigns a fresh UUID and persists an empty group. The ID never
// changes afterwards.
func (s *Service) Create(ctx context.Context, name string) (model.Group, error) {
	name, err := validName(name)
	if err != nil {
		return model.Group{}, err
	}
	g := model.Group{ID: uuid.NewString(), Name: name, Links: []string{}}
	if err := s.save(ctx, g); err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// Get distinguishes "group has no links" (valid, empty) from "group does not
// exist" (GROUP_NOT_FOUND).
func (s *Service) Get(ctx context.Context, id string) (model.Group, error) {
	value, ok, err := s.store.Get(ctx, KeyPrefix+id)
	if err != nil {
		return model.Group{}, err
	}
	if !ok {
		return model.Group{}, notFound(id)
	}
	var rec model.GroupRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return model.Group{}, groupError("GROUP_CORRUPT", "分组存储内容损坏", id, err)
	}
	links := rec.Links
	if links == nil {
		links = []string{}
	}
	return model.Group{ID: id, Name: rec.Name, Links: links}, nil
}

func (s *Service) List(ctx context.Context) ([]model.Group, error) {
	keys, err := s.store.List(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	groups := make([]model.Group, 0, len(keys))
	for _, key := range keys {
		g, err := s.Get(ctx, strings.TrimPrefix(key, KeyPrefix))
		if err != nil {
			// A concurrent delete between List and Get is not an error.
			var ge *Error
			if errors.As(err, &ge) && ge.AppError.Code == "GROUP_NOT_FOUND" {
				continue
			}
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Update replaces name and/or links. Nil means "keep current value".
func (s *Service) Update(ctx context.Context, id string, name *string, links *[]string) (model.Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return model.Group{}, err
	}
	if name != nil {
		n, err := validName(*name)
		if err != nil {
			return model.Group{}, err
		}
		g.Name = n
	}
	if links != nil {
		cleaned, err := validLinks(*links)
		if err != nil {
			return model.Group{}, err
		}
		g.Links = cleaned
	}
	if err := s.save(ctx, g); err != nil {
		return model.Group{}, err
	}
	return g, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, KeyPrefix+id)
}

// AppendLinks adds link references to the end of the group's list.
func (s *Service) AppendLinks(ctx context.Context, id string, links []string) (model.Group, error) {
	cleaned, err := validLinks(links)
	if err != nil {
		return model.Group{}, err
	}
	if len(cleaned) == 0 {
		return model.Group{}, groupError("INVALID_ARGUMENT", "links 不能为空", "", nil)
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return model.Group{}, err
	}
	g.Links = append(g.Links, cleaned...)
	if err := s.save(ctx, g); err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// ImportConfig converts a client configuration into share links, wraps them
// as a single embedded data: reference, and appends it to the group.
// Format is "outbounds" (JSON, the default) or "clash" (YAML). Returns the
// updated group and the number of generated share links.
func (s *Service) ImportConfig(ctx context.Context, id, format, configText string) (model.Group, int, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return model.Group{}, 0, err
	}

	var links []string
	switch format {
	case "", "outbounds":
		links, err = importer.ImportOutbounds(configText)
	case "clash":
		links, err = importer.ImportClashYAML(configText)
	default:
		return model.Group{}, 0, groupError("INVALID_ARGUMENT", "不支持的 format（仅支持 outbounds/clash）", format, nil)
	}
	if err != nil {
		return model.Group{}, 0, err
	}
	if len(links) == 0 {
		return model.Group{}, 0, groupError("NO_VALID_NODES", "配置中没有任何可用节点", "", nil)
	}

	payload := base64.StdEncoding.EncodeToString([]byte(strings.Join(links, "\n")))
	g.Links = append(g.Links, "data:text/plain;base64,"+payload)
	if err := s.save(ctx, g); err != nil {
		return model.Group{}, 0, err
	}
	return g, len(links), nil
}

func (s *Service) save(ctx context.Context, g model.Group) error {
	value, err := json.Marshal(model.GroupRecord{Name: g.Name, Links: g.Links})
	if err != nil {
		return groupError("GROUP_CORRUPT", "分组序列化失败", g.ID, err)
	}
	return s.store.Put(ctx, KeyPrefix+g.ID, string(value))
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", groupError("INVALID_ARGUMENT", "分组名称不能为空", "", nil)
	}
	if len(name) > 100 {
		return "", groupError("INVALID_ARGUMENT", "分组名称过长", "max=100 bytes", nil)
	}
	if strings.ContainsAny(name, "\r\n\x00") {
		return "", groupError("INVALID_ARGUMENT", "分组名称包含非法控制字符", "", nil)
	}
	return name, nil
}

func validLinks(links []string) ([]string, error) {
	out := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if strings.ContainsAny(l, "\r\n\x00") {
			return nil, groupError("INVALID_ARGUMENT", "链接包含非法控制字符", "", nil)
		}
		out = append(out, l)
	}
	return out, nil
}
