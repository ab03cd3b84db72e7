// Package textgen wraps the chat-completion API used for Hebrew article
// generation, English translation, social snippets, and podcast scripts.
package textgen
