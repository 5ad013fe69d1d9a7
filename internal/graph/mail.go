package graph

import (
	"context"
	"net/http"
)

const SendMailEndpoint = "/me/sendMail"

// Message is the sendMail payload.
type Message struct {
	Subject      string      `json:"subject"`
	Body         ItemBody    `json:"body"`
	ToRecipients []Recipient `json:"toRecipients"`
}

type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type EmailAddress struct {
	Address string `json:"address"`
}

type sendMailRequest struct {
	Message Message `json:"message"`
}

// SendHTMLMail sends an HTML message from the signed-in user to one recipient.
func (c *Client) SendHTMLMail(ctx context.Context, to, subject, html string) error {
	req := sendMailRequest{Message: Message{
		Subject:      subject,
		Body:         ItemBody{ContentType: "HTML", Content: html},
		ToRecipients: []Recipient{{EmailAddress: EmailAddress{Address: to}}},
	}}
	_, err := c.Call(ctx, http.MethodPost, SendMailEndpoint, req)
	return err
}
