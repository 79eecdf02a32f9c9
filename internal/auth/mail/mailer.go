// Package mail is the outbound-email collaborator. The auth core only ever
// needs "send this text to this address"; delivery transport stays behind
// the Sender interface.
package mail

import "context"

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
