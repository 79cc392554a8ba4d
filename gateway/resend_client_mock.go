package gateway

import (
	"context"
	"errors"
	"sync"

	"eventure/entity"
)

type DeliveryMock struct {
	mock sync.Mutex

	SentConfirmations []entity.ConfirmationJob

	// FailSends makes Send return an error without recording the job.
	FailSends bool
}

func (c *DeliveryMock) Send(ctx context.Context, job entity.ConfirmationJob) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.FailSends {
		return errors.New("delivery service unavailable")
	}

	c.SentConfirmations = append(c.SentConfirmations, job)

	return nil
}

func (c *DeliveryMock) Sent() []entity.ConfirmationJob {
	c.mock.Lock()
	defer c.mock.Unlock()

	return append([]entity.ConfirmationJob(nil), c.SentConfirmations...)
}
