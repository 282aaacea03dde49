package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

var ErrPersonUnavailable = errors.New(domain.MsgPersonFetchFailed)

type PersonDetail struct {
	ID        int64           `json:"id"`
	Document  json.RawMessage `json:"document"`
	Pretty    string          `json:"pretty"`
	BackRoute string          `json:"backRoute"`
}

type PersonService interface {
	GetPerson(ctx context.Context, id int64) (*PersonDetail, error)
	// Badge renders the QR code the scanner reads for this person.
	Badge(id int64) ([]byte, error)
}

type personService struct {
	persons   PersonAPI
	badgeSize int
}

func NewPersonService(persons PersonAPI, badgeSize int) PersonService {
	if badgeSize <= 0 {
		badgeSize = 256
	}
	return &personService{persons: persons, badgeSize: badgeSize}
}

func (s *personService) GetPerson(ctx context.Context, id int64) (*PersonDetail, error) {
	p, err := s.persons.GetPerson(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "Person fetch failed", "person_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersonUnavailable, err)
	}
	pretty, err := p.Pretty()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersonUnavailable, err)
	}
	return &PersonDetail{ID: p.ID, Document: p.Document, Pretty: pretty, BackRoute: domain.RouteScanner}, nil
}

func (s *personService) Badge(id int64) ([]byte, error) {
	return qrcode.Encode(strconv.FormatInt(id, 10), qrcode.Medium, s.badgeSize)
}

// ParsePersonID validates a person id taken from a route.
func ParsePersonID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidPersonID
	}
	return id, nil
}
