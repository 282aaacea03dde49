package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

type DevMailer struct {
	out io.Writer
}

func NewDevMailer() *DevMailer {
	return &DevMailer{out: os.Stdout}
}

func (d *DevMailer) SendArrivalNotice(ctx context.Context, to string, notice ArrivalNotice) error {
	logger.InfoContext(ctx, "[DEV MAIL] Arrival notice",
		"to", to,
		"booking_id", notice.BookingID,
		"guest_number", notice.GuestNumber,
	)

	fmt.Fprintf(d.out, "\n"+
		"-----------------------------------------------------------------\n"+
		"ARRIVAL NOTICE (DEV MODE)\n"+
		"-----------------------------------------------------------------\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"-----------------------------------------------------------------\n\n",
		to, notice.subject(), notice.text())

	return nil
}
