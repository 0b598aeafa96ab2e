package authorizenet

import (
	"context"
	"fmt"
)

const (
	// MaxSubscriptionNameLength is the gateway limit on subscription.name.
	MaxSubscriptionNameLength = 50
	// OngoingOccurrences marks a subscription with no end date.
	OngoingOccurrences = 9999
)

// MonthlySchedule bills once a month, forever, starting on start.
func MonthlySchedule(start Date) PaymentScheduleType {
	return PaymentScheduleType{
		Interval: IntervalType{
			Length: 1,
			Unit:   "months",
		},
		StartDate:        start,
		TotalOccurrences: OngoingOccurrences,
	}
}

// SubscriptionName truncates name to the gateway limit.
func SubscriptionName(name string) string {
	r := []rune(name)
	if len(r) > MaxSubscriptionNameLength {
		return string(r[:MaxSubscriptionNameLength])
	}
	return name
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Response, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}

	var resp Response
	err := c.Execute(ctx, "ARBCancelSubscriptionRequest", &ARBCancelSubscriptionRequest{
		MerchantAuthentication: c.MerchantAuthentication(),
		SubscriptionID:         subscriptionID,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.log.Info("subscription cancel answered",
		"subscription_id", subscriptionID,
		"result", resp.Messages.ResultCode,
		"message", resp.FirstMessage(),
	)
	return &resp, nil
}
