// Package discord bridges a discordgo bot session to a single-threaded consumer.
//
// A Bridge owns one discordgo session and the goroutine that keeps it connected.
// Gateway events arrive on discordgo's goroutines, are converted into plain value
// types (SlashCommandEvent, MessageEvent, ButtonClickEvent), and are posted to a
// Loop so that consumer code never races with the network side.
// Outbound calls (replies, messages, presence, voice) are issued from the
// consumer side and never block on the gateway.
//
// Adapter exposes the same Bridge as a sarah.Adapter so that go-sarah bots can
// consume Discord text messages.
//
// The _example directory holds runnable bots for both styles.
package discord
