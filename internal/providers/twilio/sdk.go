package twilio

import (
	"context"
	"errors"

	twiliogo "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SDKClient sends through the official twilio-go REST client. The SDK call
// takes no context, so cancellation is only checked before dispatch.
type SDKClient struct {
	rest       *twiliogo.RestClient
	accountSID string
	authToken  string
}

var (
	_ Sender  = (*SDKClient)(nil)
	_ Readier = (*SDKClient)(nil)
)

func NewSDKClient(accountSID, authToken string) *SDKClient {
	return &SDKClient{
		accountSID: accountSID,
		authToken:  authToken,
		rest: twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (c *SDKClient) Ready(ctx context.Context) error {
	if c.accountSID == "" || c.authToken == "" {
		return errMissingCredentials
	}
	return nil
}

func (c *SDKClient) CreateMessage(ctx context.Context, req CreateMessageRequest) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetBody(req.Body)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return Message{}, &APIError{
				Status:   restErr.Status,
				Code:     restErr.Code,
				Message:  restErr.Message,
				MoreInfo: restErr.MoreInfo,
			}
		}
		return Message{}, err
	}

	var out Message
	if resp.Sid != nil {
		out.Sid = *resp.Sid
	}
	if resp.Status != nil {
		out.Status = *resp.Status
	}
	return out, nil
}
