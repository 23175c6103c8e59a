// Package operations binds the closed operation set to the remote account
// API and the formatter. The registry it builds is the only place operation
// names, parameter schemas and handlers are declared.
package operations

import (
	"context"
	"fmt"

	"github.com/avadhbsd/DevinKitMCP/internal/app/registry"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

const (
	defaultSubscriberLimit = 10
	defaultBroadcastLimit  = 10
	defaultSortBy          = "created_at"
	defaultSortOrder       = "desc"
)

// conceptKnowledgeBase is the fixed documentation explain_concept answers from.
const conceptKnowledgeBase = `Tags are labels that you can apply to subscribers to segment your audience.
They help you organize subscribers based on interests, behaviors, or other criteria.

Subscribers are people who have signed up to receive your emails.
They can be in different states: active, inactive, cancelled, bounced, or complained.

Forms are used to collect subscriber information and add them to your list.
They can be embedded on your website or shared via a direct link.

Broadcasts are one-time emails sent to segments of your audience.
They can be scheduled or sent immediately.`

// NewRegistry builds the operation registry over an account API and a
// formatter. It fails only on a malformed declaration (duplicate names).
func NewRegistry(api domain.AccountAPI, formatter domain.ResponseFormatter) (*registry.Registry, error) {
	return registry.New(
		registry.Operation{
			Name: "get_tags",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return api.ListTags(ctx)
			},
		},
		registry.Operation{
			Name: "count_tags",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				tags, err := api.ListTags(ctx)
				if err != nil {
					return nil, err
				}
				return len(tags), nil
			},
		},
		registry.Operation{
			Name: "create_tag",
			Params: []registry.Param{
				{Name: "name", Type: registry.TypeString, Required: true},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return api.CreateTag(ctx, params["name"].(string))
			},
		},
		registry.Operation{
			Name: "tag_subscriber",
			Params: []registry.Param{
				{Name: "email", Type: registry.TypeString, Required: true},
				{Name: "tag_name", Type: registry.TypeString, Required: true},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return tagSubscriber(ctx, api, params["email"].(string), params["tag_name"].(string))
			},
		},
		registry.Operation{
			Name: "get_subscribers",
			Params: []registry.Param{
				{Name: "limit", Type: registry.TypeInt},
				{Name: "sort_by", Type: registry.TypeString},
				{Name: "sort_order", Type: registry.TypeString},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				q := domain.SubscriberQuery{
					Limit:     intOr(params, "limit", defaultSubscriberLimit),
					SortBy:    stringOr(params, "sort_by", defaultSortBy),
					SortOrder: stringOr(params, "sort_order", defaultSortOrder),
				}
				return api.ListSubscribers(ctx, q)
			},
		},
		registry.Operation{
			Name: "count_subscribers",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return api.CountSubscribers(ctx)
			},
		},
		registry.Operation{
			Name: "get_subscriber_details",
			Params: []registry.Param{
				{Name: "email", Type: registry.TypeString, Required: true},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return api.SubscriberByEmail(ctx, params["email"].(string))
			},
		},
		registry.Operation{
			Name: "get_forms",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return api.ListForms(ctx)
			},
		},
		registry.Operation{
			Name: "create_form",
			Params: []registry.Param{
				{Name: "name", Type: registry.TypeString, Required: true},
				{Name: "redirect_url", Type: registry.TypeString},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return api.CreateForm(ctx, params["name"].(string), stringOr(params, "redirect_url", ""))
			},
		},
		registry.Operation{
			Name: "get_broadcasts",
			Params: []registry.Param{
				{Name: "limit", Type: registry.TypeInt},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return api.ListBroadcasts(ctx, intOr(params, "limit", defaultBroadcastLimit))
			},
		},
		registry.Operation{
			Name: "create_broadcast",
			Params: []registry.Param{
				{Name: "subject", Type: registry.TypeString, Required: true},
				{Name: "content", Type: registry.TypeString, Required: true},
				{Name: "email_template_id", Type: registry.TypeString},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return api.CreateBroadcast(ctx, domain.BroadcastDraft{
					Subject:         params["subject"].(string),
					Content:         params["content"].(string),
					EmailTemplateID: stringOr(params, "email_template_id", ""),
				})
			},
		},
		registry.Operation{
			Name: "explain_concept",
			Params: []registry.Param{
				{Name: "concept", Type: registry.TypeString, Required: true},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return formatter.Explain(ctx, params["concept"].(string), conceptKnowledgeBase)
			},
		},
	)
}

// tagSubscriber is a composite operation: resolve the tag name to an id
// (exact, case-sensitive match, first match in API order), create the tag
// when no match exists, then tag the subscriber with the resolved id. No
// partial state is externally visible.
func tagSubscriber(ctx context.Context, api domain.AccountAPI, email, tagName string) (any, error) {
	tags, err := api.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("looking up tags: %w", err)
	}

	var tagID int64
	for _, tag := range tags {
		if tag.Name == tagName {
			tagID = tag.ID
			break
		}
	}

	if tagID == 0 {
		created, err := api.CreateTag(ctx, tagName)
		if err != nil {
			return nil, fmt.Errorf("creating tag %q: %w", tagName, err)
		}
		tagID = created.ID
		if tagID == 0 {
			return nil, fmt.Errorf("tag %q was created but no usable id was returned", tagName)
		}
	}

	return api.TagSubscriberByEmail(ctx, email, tagID)
}

func stringOr(params map[string]any, key, def string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return def
}

func intOr(params map[string]any, key string, def int) int {
	if n, ok := params[key].(int); ok && n > 0 {
		return n
	}
	return def
}
