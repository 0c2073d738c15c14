/*
Package bot routes normalized user intents to the registry, the conversation
tracker, and the directory client, and composes the replies.

The chat transport stays outside: it parses raw messages into the intent
methods below and delivers replies through the Sender seam.
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"torwatch/internal/app/conversation"
	"torwatch/internal/app/directory"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/pkg/logx"
)

// Reply texts. Wording follows the original bot where it had one.
const (
	msgWelcomeNew     = "Welcome! Your ID has been registered in the database."
	msgWelcomeBack    = "Welcome back! Your ID is already in the database."
	msgAddPrompt      = "Write down the fingerprint of the node you want to look at."
	msgRemovePrompt   = "Write the fingerprint of the node you no longer want to control."
	msgNoNodes        = "No nodes present."
	msgNotRegistered  = "You are not registered yet. Send /start first."
	msgInvalidFP      = "The fingerprint format is not recognized. A fingerprint is 40 letters and digits."
	msgGenericHint    = "Use /help to find out what you can do."
	msgStorageTrouble = "Storage error. Please try again."

	msgHelp = "You can manage nodes using the following commands:\n" +
		"[+] Node: Add a new Node\n" +
		"[-] Node: Remove a Node\n" +
		"List Nodes: View the list of nodes\n" +
		"Status Nodes: View the status of nodes"
)

// Sender delivers a reply to a user, satisfied by the Telegram transport.
type Sender interface {
	Reply(ctx context.Context, id node.UserID, text string) error
}

// Lookuper is the directory lookup seam used by the on-demand status command.
type Lookuper interface {
	Lookup(ctx context.Context, fp node.Fingerprint) (*directory.RelayInfo, error)
}

// Dispatcher owns the interactive command flows.
type Dispatcher struct {
	store   registry.Store
	tracker *conversation.Tracker
	dir     Lookuper
	sender  Sender
	logger  zerolog.Logger
}

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(store registry.Store, tracker *conversation.Tracker, dir Lookuper, sender Sender) *Dispatcher {
	return &Dispatcher{
		store:   store,
		tracker: tracker,
		dir:     dir,
		sender:  sender,
		logger:  logx.Logger().With().Str("component", "Dispatcher").Logger(),
	}
}

// HandleStart registers the user and greets them.
func (d *Dispatcher) HandleStart(ctx context.Context, id node.UserID) error {
	created, err := d.store.EnsureUser(ctx, id)
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", int64(id)).Msg("Failed to register user.")
		return d.sender.Reply(ctx, id, msgStorageTrouble)
	}

	if created {
		return d.sender.Reply(ctx, id, msgWelcomeNew)
	}
	return d.sender.Reply(ctx, id, msgWelcomeBack)
}

// HandleHelp sends the command summary.
func (d *Dispatcher) HandleHelp(ctx context.Context, id node.UserID) error {
	return d.sender.Reply(ctx, id, msgHelp)
}

// HandleAddRequested prompts for a fingerprint and arms the add follow-up.
func (d *Dispatcher) HandleAddRequested(ctx context.Context, id node.UserID) error {
	d.tracker.Begin(id, conversation.ActionAdd)
	return d.sender.Reply(ctx, id, msgAddPrompt)
}

// HandleRemoveRequested prompts for a fingerprint and arms the remove follow-up.
func (d *Dispatcher) HandleRemoveRequested(ctx context.Context, id node.UserID) error {
	d.tracker.Begin(id, conversation.ActionRemove)
	return d.sender.Reply(ctx, id, msgRemovePrompt)
}

// HandleListRequested sends the user's watched fingerprints.
func (d *Dispatcher) HandleListRequested(ctx context.Context, id node.UserID) error {
	fingerprints, err := d.store.List(ctx, id)
	if errors.Is(err, registry.ErrUnknownUser) {
		return d.sender.Reply(ctx, id, msgNotRegistered)
	}
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", int64(id)).Msg("Failed to list nodes.")
		return d.sender.Reply(ctx, id, msgStorageTrouble)
	}

	if len(fingerprints) == 0 {
		return d.sender.Reply(ctx, id, msgNoNodes)
	}

	lines := make([]string, 0, len(fingerprints)+1)
	lines = append(lines, "Your nodes:")
	for _, fp := range fingerprints {
		lines = append(lines, string(fp))
	}
	return d.sender.Reply(ctx, id, strings.Join(lines, "\n"))
}

// HandleStatusRequested polls each of the user's fingerprints synchronously
// and sends one status record per node. A failed lookup for one node is
// reported for that node and does not stop the rest.
func (d *Dispatcher) HandleStatusRequested(ctx context.Context, id node.UserID) error {
	fingerprints, err := d.store.List(ctx, id)
	if errors.Is(err, registry.ErrUnknownUser) {
		return d.sender.Reply(ctx, id, msgNotRegistered)
	}
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", int64(id)).Msg("Failed to list nodes.")
		return d.sender.Reply(ctx, id, msgStorageTrouble)
	}

	if len(fingerprints) == 0 {
		return d.sender.Reply(ctx, id, msgNoNodes)
	}

	for _, fp := range fingerprints {
		if err := d.sender.Reply(ctx, id, d.statusLine(ctx, fp)); err != nil {
			return err
		}
	}
	return nil
}

// statusLine produces the status record for one fingerprint, degrading to a
// per-node error line when the directory cannot answer.
func (d *Dispatcher) statusLine(ctx context.Context, fp node.Fingerprint) string {
	info, err := d.dir.Lookup(ctx, fp)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Sprintf("No relay found for fingerprint %s. It may have left the network.", fp)
	case err != nil:
		d.logger.Warn().Err(err).Str("fingerprint", string(fp)).Msg("Directory lookup failed.")
		return fmt.Sprintf("Could not check node %s: directory service unavailable.", fp)
	default:
		return directory.FormatStatusReport(fp, info, time.Now())
	}
}

// HandleFreeText consumes the user's pending action, if any, and applies the
// message as a fingerprint. Without a pending action it falls back to
// generic guidance.
func (d *Dispatcher) HandleFreeText(ctx context.Context, id node.UserID, text string) error {
	action, ok := d.tracker.Consume(id)
	if !ok {
		return d.sender.Reply(ctx, id, msgGenericHint)
	}

	fp, err := node.ParseFingerprint(text)
	if err != nil {
		// Validation failure consumes the pending action but never
		// touches the registry.
		return d.sender.Reply(ctx, id, msgInvalidFP)
	}

	switch action {
	case conversation.ActionAdd:
		return d.finishAdd(ctx, id, fp)
	case conversation.ActionRemove:
		return d.finishRemove(ctx, id, fp)
	default:
		return d.sender.Reply(ctx, id, msgGenericHint)
	}
}

func (d *Dispatcher) finishAdd(ctx context.Context, id node.UserID, fp node.Fingerprint) error {
	err := d.store.Add(ctx, id, fp)
	switch {
	case errors.Is(err, registry.ErrAlreadyPresent):
		return d.sender.Reply(ctx, id, fmt.Sprintf("The node with fingerprint %s is already in your list.", fp))
	case err != nil:
		d.logger.Error().Err(err).Int64("user_id", int64(id)).Msg("Failed to add node.")
		return d.sender.Reply(ctx, id, msgStorageTrouble)
	default:
		return d.sender.Reply(ctx, id, fmt.Sprintf("The node with fingerprint %s has been added to your list.", fp))
	}
}

func (d *Dispatcher) finishRemove(ctx context.Context, id node.UserID, fp node.Fingerprint) error {
	removed, err := d.store.Remove(ctx, id, fp)
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", int64(id)).Msg("Failed to remove node.")
		return d.sender.Reply(ctx, id, msgStorageTrouble)
	}

	if !removed {
		return d.sender.Reply(ctx, id, fmt.Sprintf("The node with fingerprint %s is not in your list.", fp))
	}
	return d.sender.Reply(ctx, id, fmt.Sprintf("The node with fingerprint %s has been removed from your list.", fp))
}
