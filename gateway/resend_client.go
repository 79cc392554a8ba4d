package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"eventure/entity"
)

const resendEndpoint = "https://api.resend.com/emails"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<h1>Your ticket for {{.EventName}}</h1>
{{if .EventImageURL}}<img src="{{.EventImageURL}}" alt="{{.EventName}}" width="560" />{{end}}
<p>Hi {{.RecipientName}},</p>
<p>Your ticket is confirmed.</p>
<ul>
	<li>Date: {{.EventDate}}</li>
	<li>Time: {{.EventTime}}</li>
	<li>Location: {{.EventLocation}}</li>
</ul>
<p>Ticket ID: {{.TicketID}}</p>
<p><a href="{{.TicketURL}}">View your ticket</a></p>
`))

// ResendClient sends confirmation emails through the Resend HTTP API.
type ResendClient struct {
	httpClient *http.Client
	apiKey     string
	from       string
}

func NewResendClient(apiKey, from string) ResendClient {
	return ResendClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		apiKey: apiKey,
		from:   from,
	}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c ResendClient) Send(ctx context.Context, job entity.ConfirmationJob) error {
	var html bytes.Buffer
	if err := confirmationTemplate.Execute(&html, job); err != nil {
		return fmt.Errorf("could not render confirmation email: %w", err)
	}

	payload, err := json.Marshal(sendEmailRequest{
		From:    c.from,
		To:      []string{job.RecipientEmail},
		Subject: fmt.Sprintf("Your Ticket for %s", job.EventName),
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("could not marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("could not create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code for POST %s: %d", resendEndpoint, resp.StatusCode)
	}

	return nil
}
