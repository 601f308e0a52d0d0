// Package gmail adapts the Gmail REST API to the MailSource port.
// Every outbound call passes the rate limiter, and every failure is
// wrapped with a transient/permanent classification so the retry
// policy upstream can tell them apart.
package gmail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/rate"
)

// Client implements core.MailSource against a user's Gmail account.
type Client struct {
	svc     *gmailapi.Service
	limiter rate.Limiter
	logger  *zap.Logger

	mu        sync.Mutex
	idByName  map[string]string
	nameByID  map[string]string
	labelsHot bool
}

// NewClient creates a new client around an authenticated service.
func NewClient(svc *gmailapi.Service, limiter rate.Limiter, logger *zap.Logger) *Client {
	if limiter == nil {
		limiter = rate.Unlimited()
	}
	return &Client{
		svc:      svc,
		limiter:  limiter,
		logger:   logger,
		idByName: make(map[string]string),
		nameByID: make(map[string]string),
	}
}

// FetchBatch lists up to limit messages matching the query and loads
// the metadata the pipeline needs. A message whose details cannot be
// fetched is logged and dropped rather than failing the batch.
func (c *Client) FetchBatch(ctx context.Context, query string, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := c.listIDs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]*core.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.getMessage(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, wrapErr("get message", err)
			}
			c.logger.Warn("Skipping message with unreadable metadata",
				zap.String("message_id", id),
				zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *Client) listIDs(ctx context.Context, query string, limit int) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, wrapErr("list messages", err)
		}

		call := c.svc.Users.Messages.List("me").
			Q(query).
			MaxResults(int64(limit - len(ids))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapErr("list messages", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (c *Client) getMessage(ctx context.Context, id string) (*core.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	m, err := c.svc.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "Subject").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	msg := &core.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Labels:   c.labelNames(ctx, m.LabelIds),
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				msg.Sender = h.Value
			case "subject":
				msg.Subject = h.Value
			}
		}
	}
	fillSender(msg)
	return msg, nil
}

// fillSender derives the bare address and domain from the From header.
func fillSender(msg *core.Message) {
	if msg.Sender == "" {
		return
	}
	if addr, err := mail.ParseAddress(msg.Sender); err == nil {
		msg.SenderAddress = strings.ToLower(addr.Address)
	} else {
		// Malformed header; salvage anything address-shaped
		raw := strings.Trim(msg.Sender, "<> ")
		if strings.Contains(raw, "@") {
			msg.SenderAddress = strings.ToLower(raw)
		}
	}
	if at := strings.LastIndex(msg.SenderAddress, "@"); at >= 0 {
		msg.SenderDomain = msg.SenderAddress[at+1:]
	}
}

// AddLabel applies the named label, creating it first when needed.
func (c *Client) AddLabel(ctx context.Context, messageID, label string) error {
	id, err := c.ensureLabel(ctx, label)
	if err != nil {
		return err
	}
	return c.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{
		AddLabelIds: []string{id},
	})
}

// RemoveLabel removes the named label. Unknown labels are a no-op;
// removal must never create anything.
func (c *Client) RemoveLabel(ctx context.Context, messageID, label string) error {
	id, ok, err := c.lookupLabel(ctx, label)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{id},
	})
}

// Archive takes the message out of the inbox.
func (c *Client) Archive(ctx context.Context, messageID string) error {
	return c.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{core.LabelInbox},
	})
}

func (c *Client) modify(ctx context.Context, messageID string, req *gmailapi.ModifyMessageRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return wrapErr("modify message", err)
	}
	_, err := c.svc.Users.Messages.Modify("me", messageID, req).Context(ctx).Do()
	if err != nil {
		return wrapErr("modify message", err)
	}
	return nil
}

// CreateFilter installs a from:-based filter that labels and archives
// future mail from the sender.
func (c *Client) CreateFilter(ctx context.Context, sender, label string) (string, error) {
	id, err := c.ensureLabel(ctx, label)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", wrapErr("create filter", err)
	}
	filter, err := c.svc.Users.Settings.Filters.Create("me", &gmailapi.Filter{
		Criteria: &gmailapi.FilterCriteria{
			From: sender,
		},
		Action: &gmailapi.FilterAction{
			AddLabelIds:    []string{id},
			RemoveLabelIds: []string{core.LabelInbox},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("create filter", err)
	}

	c.logger.Info("Created Gmail filter",
		zap.String("sender", sender),
		zap.String("label", label),
		zap.String("filter_id", filter.Id))
	return filter.Id, nil
}

// ensureLabel returns the label's ID, creating the label when it does
// not exist yet.
func (c *Client) ensureLabel(ctx context.Context, name string) (string, error) {
	id, ok, err := c.lookupLabel(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", wrapErr("create label", err)
	}
	label, err := c.svc.Users.Labels.Create("me", &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("create label", err)
	}

	c.mu.Lock()
	c.idByName[strings.ToLower(name)] = label.Id
	c.nameByID[label.Id] = label.Name
	c.mu.Unlock()

	c.logger.Info("Created Gmail label", zap.String("label", name))
	return label.Id, nil
}

func (c *Client) lookupLabel(ctx context.Context, name string) (string, bool, error) {
	if err := c.loadLabels(ctx); err != nil {
		return "", false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.idByName[strings.ToLower(name)]
	return id, ok, nil
}

// loadLabels fills the name/ID caches once per run.
func (c *Client) loadLabels(ctx context.Context) error {
	c.mu.Lock()
	hot := c.labelsHot
	c.mu.Unlock()
	if hot {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return wrapErr("list labels", err)
	}
	resp, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return wrapErr("list labels", err)
	}

	c.mu.Lock()
	for _, l := range resp.Labels {
		c.idByName[strings.ToLower(l.Name)] = l.Id
		c.nameByID[l.Id] = l.Name
	}
	c.labelsHot = true
	c.mu.Unlock()
	return nil
}

// labelNames maps label IDs to display names. IDs the cache does not
// know (or when the cache cannot load) pass through unchanged, which
// is correct for system labels like INBOX.
func (c *Client) labelNames(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	if err := c.loadLabels(ctx); err != nil {
		c.logger.Warn("Label map unavailable, using raw label IDs", zap.Error(err))
		return append([]string(nil), ids...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := c.nameByID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

// Stop releases the rate limiter's refill goroutine.
func (c *Client) Stop() {
	if s, ok := c.limiter.(interface{ Stop() }); ok {
		s.Stop()
	}
}

// wrapErr attaches the transient/permanent classification.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &core.ProviderError{
		Op:        fmt.Sprintf("gmail: %s", op),
		Transient: isTransient(err),
		Err:       err,
	}
}

var _ core.MailSource = (*Client)(nil)
