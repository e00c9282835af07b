package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core/school"
)

func (cli *commandLine) bulkSend(ctx context.Context, recipients []string, msg string, delay *int, watch bool) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	job, err := cli.msgs.Send(ctx, school.BulkSendRequest{Recipients: recipients, Message: msg, DelaySeconds: delay})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "job %s: %s (%d recipients)\n", job.JobID, job.Status, job.Total)
	if !watch {
		return nil
	}

	last, err := cli.msgs.Watch(ctx, job.JobID, cli.conf.Messaging.PollInterval, cli.printProgress)
	if err != nil {
		return err
	}
	cli.printFailures(last)
	return nil
}

func (cli *commandLine) bulkStatus(ctx context.Context, jobID string) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	st, err := cli.msgs.Status(ctx, jobID)
	if err != nil {
		return err
	}
	cli.printProgress(st)
	cli.printFailures(st)
	return nil
}

func (cli *commandLine) printProgress(st school.BulkSendStatus) {
	p := st.Progress
	fmt.Fprintf(cli.out, "%s: %d/%d sent, %d failed, %d pending (%.0f%%)\n", st.Status, p.Sent, p.Total, p.Failed, p.Pending, p.Percentage)
}

func (cli *commandLine) printFailures(st school.BulkSendStatus) {
	for _, m := range st.Messages {
		if m.Status == school.MessageFailed {
			fmt.Fprintf(cli.out, "  %s: %s\n", m.Recipient, m.Error)
		}
	}
}
