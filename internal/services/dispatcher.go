package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/clients/twilio"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/sendgrid"
)

// Dispatcher delivers one outbound text to a profile. Any failure is
// reported as errs.ErrDispatchFailure so callers can hold state back.
type Dispatcher interface {
	Send(ctx context.Context, recipient *types.Profile, channel types.Channel, text string) error
}

type channelDispatcher struct {
	log     *logger.Logger
	sms     twilio.Client
	email   sendgrid.Client
	timeout time.Duration
}

// NewDispatcher routes whatsapp/sms/phone through Twilio and email through
// SendGrid. Either client may be nil, which fails that channel.
func NewDispatcher(log *logger.Logger, sms twilio.Client, email sendgrid.Client, timeout time.Duration) Dispatcher {
	return &channelDispatcher{
		log:     log.With("service", "Dispatcher"),
		sms:     sms,
		email:   email,
		timeout: callTimeout(timeout),
	}
}

func (d *channelDispatcher) Send(ctx context.Context, recipient *types.Profile, channel types.Channel, text string) error {
	if recipient == nil {
		return errs.DispatchFailure(string(channel), fmt.Errorf("recipient required"))
	}
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	switch channel {
	case types.ChannelWhatsApp, types.ChannelSMS, types.ChannelPhone:
		err = d.sendPhone(cctx, recipient, channel, text)
	case types.ChannelEmail:
		err = d.sendEmail(cctx, recipient, text)
	default:
		err = fmt.Errorf("channel not supported for outbound delivery")
	}
	if err != nil {
		if metrics := observability.Current(); metrics != nil {
			metrics.IncDispatch(string(channel), "failed")
		}
		d.log.Error("Dispatch failed", "profile_id", recipient.ID, "channel", channel, "error", err)
		return errs.DispatchFailure(string(channel), err)
	}
	if metrics := observability.Current(); metrics != nil {
		metrics.IncDispatch(string(channel), "sent")
	}
	d.log.Info("Dispatched message", "profile_id", recipient.ID, "channel", channel)
	return nil
}

func (d *channelDispatcher) sendPhone(ctx context.Context, p *types.Profile, channel types.Channel, text string) error {
	if d.sms == nil {
		return fmt.Errorf("twilio not configured")
	}
	to := types.NormalizePhone(p.Phone)
	if to == "" {
		return fmt.Errorf("recipient has no phone number")
	}
	if channel == types.ChannelWhatsApp {
		_, err := d.sms.SendWhatsApp(ctx, to, text)
		return err
	}
	_, err := d.sms.SendSMS(ctx, to, text)
	return err
}

func (d *channelDispatcher) sendEmail(ctx context.Context, p *types.Profile, text string) error {
	if d.email == nil {
		return fmt.Errorf("sendgrid not configured")
	}
	to := strings.TrimSpace(p.Email)
	if to == "" {
		return fmt.Errorf("recipient has no email")
	}
	_, err := d.email.Send(ctx, sendgrid.SendEmailRequest{
		To:         sendgrid.EmailAddress{Email: to, Name: p.Name},
		Subject:    "A message from Superconnector",
		Text:       text,
		Categories: []string{"superconnector"},
		CustomArgs: map[string]string{"profile_id": p.ID.String()},
	})
	return err
}
