package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"contactreport/internal/apperr"
	"contactreport/internal/model"
)

// ContactsEndpoint selects exactly the three report fields.
const ContactsEndpoint = "/contacts?$select=displayName,mail,companyName"

type contactsPage struct {
	Value []model.Contact `json:"value"`
}

// ListContacts returns the first page of the tenant's org contacts.
func (c *Client) ListContacts(ctx context.Context) ([]model.Contact, error) {
	raw, err := c.Call(ctx, http.MethodGet, ContactsEndpoint, nil)
	if err != nil {
		return nil, err
	}
	var page contactsPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeParseFailure, fmt.Sprintf("decode contacts: %v", err))
	}
	if page.Value == nil {
		return []model.Contact{}, nil
	}
	return page.Value, nil
}
