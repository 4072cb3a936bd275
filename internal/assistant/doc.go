// Package assistant bridges conversation messages to an external
// completion service.
//
// The Bridge is stateless: each Respond call sends a system prompt plus
// the single user message and returns the trimmed reply. It speaks to
// any OpenAI-compatible endpoint via langchaingo, so self-hosted
// backends work by setting base_url.
package assistant
