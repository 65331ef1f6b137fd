package http

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/finconsol/finconsol/internal/report"
)

var buildGroup singleflight.Group

func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (*report.Report, error)) (*report.Report, error) {
	resultChan := buildGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		result, ok := res.Val.(*report.Report)
		if !ok {
			return nil, errors.New("reporthttp: unexpected singleflight payload")
		}
		return result, nil
	}
}
