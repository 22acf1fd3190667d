package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/model"
)

// errEmptyResponse is returned when a backend reports neither a reply nor an error.
var errEmptyResponse = errors.New("backend returned no response")

// callBackend performs one backend call. A panic inside the backend is
// converted to an error so it is contained to the current request.
func callBackend(ctx context.Context, be backend.Backend, entity, action string, payload, page model.Payload) (resp *backend.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("backend panic: %v", r)
		}

		result := resultOK
		switch {
		case err != nil:
			result = resultError
		case !resp.OK:
			result = resultRejected
		}
		backendCallsTotal.WithLabelValues(actionLabel(action), result).Inc()
	}()

	resp, err = be.Call(ctx, entity, action, payload, page)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	return resp, err
}
