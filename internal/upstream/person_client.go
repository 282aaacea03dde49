package upstream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

// PersonClient reads person records from GET /users/{id}.
type PersonClient struct {
	proxy *ServiceProxy
}

func NewPersonClient(baseURL string, timeout time.Duration) *PersonClient {
	return &PersonClient{proxy: NewServiceProxy("person", baseURL, timeout)}
}

func (c *PersonClient) GetPerson(ctx context.Context, id int64) (*domain.Person, error) {
	var doc json.RawMessage
	if err := c.proxy.Get(ctx, "/users/"+strconv.FormatInt(id, 10), &doc); err != nil {
		return nil, err
	}
	return &domain.Person{ID: id, Document: doc}, nil
}
