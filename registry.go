package discord

import (
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// CommandDescriptor describes a slash command to register on Ready.
type CommandDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// CommandRegistry collects slash commands until the session becomes ready.
// It is append-only: there is no duplicate detection and no removal other than Drain and Clear.
type CommandRegistry struct {
	mu       sync.Mutex
	commands []CommandDescriptor
}

// NewCommandRegistry creates an empty CommandRegistry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register appends a single command.
func (r *CommandRegistry) Register(command CommandDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
}

// RegisterBatch appends the given commands in order.
func (r *CommandRegistry) RegisterBatch(commands []CommandDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, commands...)
}

// Drain returns every registered command in registration order and empties the registry.
func (r *CommandRegistry) Drain() []CommandDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := r.commands
	r.commands = nil
	return drained
}

// Clear drops pending commands.
func (r *CommandRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// Len returns the number of pending commands.
func (r *CommandRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func toApplicationCommands(commands []CommandDescriptor) []*discordgo.ApplicationCommand {
	appCommands := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, c := range commands {
		appCommands = append(appCommands, &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
			Type:        discordgo.ChatApplicationCommand,
		})
	}
	return appCommands
}

// Latch is a one-shot idempotency token.
// Bridges share a process-wide Latch by default, since bulk registration replaces the
// application's command set rather than a session's. Inject a separate one with WithRegistrationLatch.
type Latch struct {
	fired atomic.Bool
}

// processLatch is the Latch every Bridge uses unless WithRegistrationLatch replaces it.
var processLatch = NewLatch()

// NewLatch creates a Latch that has not fired yet.
func NewLatch() *Latch {
	return &Latch{}
}

// Fire reports true exactly once over the Latch's lifetime.
func (l *Latch) Fire() bool {
	return l.fired.CompareAndSwap(false, true)
}

// Fired reports whether Fire already succeeded.
func (l *Latch) Fired() bool {
	return l.fired.Load()
}
