package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/repository"
)

// RoleTag is the closed set of internal role tags a user may carry.
type RoleTag string

// Known role tags.
const (
	RoleTagSuperAdmin RoleTag = "super_admin"
	RoleTagAdmin      RoleTag = "admin"
	RoleTagManager    RoleTag = "manager"
	RoleTagUser       RoleTag = "user"
)

// roleDisplayNames maps internal snake_case tags to the display names used in
// menu allow-lists.
var roleDisplayNames = map[RoleTag]string{
	RoleTagSuperAdmin: "Super Admin",
	RoleTagAdmin:      "Admin",
	RoleTagManager:    "Manager",
	RoleTagUser:       "User",
}

// MenuItem is a static navigation entry tagged with the display-role names
// allowed to see it. Visibility is navigation-only; route authorization is
// enforced separately by the RBAC middleware.
type MenuItem struct {
	Name         string
	Path         string
	Icon         string
	AllowedRoles []string
}

// DefaultMenu returns the built-in admin navigation.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{Name: "Dashboard", Path: "/dashboard", Icon: "layout-dashboard", AllowedRoles: []string{"Super Admin", "Admin", "Manager", "User"}},
		{Name: "Users", Path: "/users", Icon: "users", AllowedRoles: []string{"Super Admin", "Admin"}},
		{Name: "Roles", Path: "/roles", Icon: "shield", AllowedRoles: []string{"Super Admin", "Admin"}},
		{Name: "Pages", Path: "/pages", Icon: "file-text", AllowedRoles: []string{"Super Admin", "Admin"}},
	}
}

// DefaultExcludedPages are assigned pages hidden from the sidebar regardless
// of role membership.
func DefaultExcludedPages() []string {
	return []string{"Activity Logs", "Company Website", "Documentation", "Help Center"}
}

// MenuService builds the per-user navigation payload.
type MenuService interface {
	Build(ctx context.Context, userID uint, roleTags []string) (dto.MenuResponse, error)
}

type menuService struct {
	items    []MenuItem
	excluded map[string]struct{}
	pages    repository.PageRepository
	logger   zerolog.Logger
}

// NewMenuService constructs the menu service. Allow-lists are validated
// against the known display names up front so a typo fails at startup rather
// than silently hiding an entry.
func NewMenuService(items []MenuItem, excludedPages []string, pages repository.PageRepository, logger zerolog.Logger) (MenuService, error) {
	known := make(map[string]struct{}, len(roleDisplayNames))
	for _, display := range roleDisplayNames {
		known[display] = struct{}{}
	}

	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Path) == "" {
			return nil, fmt.Errorf("menu entry %q: name and path are required", item.Name)
		}
		for _, role := range item.AllowedRoles {
			if _, ok := known[role]; !ok {
				return nil, fmt.Errorf("menu entry %q: unknown role name %q", item.Name, role)
			}
		}
	}

	excluded := make(map[string]struct{}, len(excludedPages))
	for _, name := range excludedPages {
		excluded[name] = struct{}{}
	}

	return &menuService{
		items:    items,
		excluded: excluded,
		pages:    pages,
		logger:   logger.With().Str("component", "menu_service").Logger(),
	}, nil
}

// DisplayRole maps a role tag to its display name. Matching is
// case-insensitive and treats spaces as underscores, so both the stored tag
// ("super_admin") and a lowercased display name ("super admin") resolve to
// "Super Admin". Unknown tags are passed through unchanged so custom roles
// still participate in matching.
func DisplayRole(tag string) string {
	normalized := RoleTag(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), " ", "_"))
	if display, ok := roleDisplayNames[normalized]; ok {
		return display
	}
	return strings.TrimSpace(tag)
}

func (s *menuService) Build(ctx context.Context, userID uint, roleTags []string) (dto.MenuResponse, error) {
	display := make(map[string]struct{}, len(roleTags))
	for _, tag := range roleTags {
		display[DisplayRole(tag)] = struct{}{}
	}

	items := make([]dto.MenuItemResponse, 0, len(s.items))
	for _, item := range s.items {
		if !anyRoleAllowed(display, item.AllowedRoles) {
			continue
		}
		items = append(items, dto.MenuItemResponse{Name: item.Name, Path: item.Path, Icon: item.Icon})
	}

	assigned, err := s.pages.ListByUser(ctx, userID)
	if err != nil {
		return dto.MenuResponse{}, err
	}

	pages := make([]dto.MenuPageResponse, 0, len(assigned))
	for _, page := range assigned {
		if _, hidden := s.excluded[page.Name]; hidden {
			continue
		}
		external := page.IsExternal || IsExternalURL(page.URL)
		pages = append(pages, dto.MenuPageResponse{
			ID:       page.ID,
			Name:     page.Name,
			Href:     formatHref(page.URL, external),
			Icon:     page.Icon,
			External: external,
		})
	}

	return dto.MenuResponse{Items: items, Pages: pages}, nil
}

func anyRoleAllowed(userRoles map[string]struct{}, allowed []string) bool {
	for _, role := range allowed {
		if _, ok := userRoles[role]; ok {
			return true
		}
	}
	return false
}

// IsExternalURL reports whether a page URL points outside the SPA.
func IsExternalURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func formatHref(url string, external bool) string {
	if url == "" {
		return "#"
	}
	if external {
		return url
	}
	if strings.HasPrefix(url, "/") {
		return url
	}
	return "/" + url
}
