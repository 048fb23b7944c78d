// Package webhook implements the chat-channel webhook endpoint.
//
// Every inbound chat event is authenticated with an HMAC-SHA1 signature,
// parsed permissively, answered with a canned reply and, when an access token
// and a conversation id are both available, the reply is sent back through
// the chat API. The caller only ever sees two outcomes: a 401 rejection or a
// 200 acknowledgement. Delivery failures are logged and swallowed.
//
// # Security Model
//
//   - HMAC-SHA1 of the raw body, hex encoded, compared with crypto/subtle
//   - An empty channel secret accepts every request (open mode)
//   - Body size limits enforced before the signature check
//   - Request logging excludes payloads, tokens and response bodies
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path (default /chat/webhook)
//  2. Body size checked (413 if too large)
//  3. X-Signature verified (401 "invalid signature" on mismatch)
//  4. conversation_id and message.text extracted, missing values become ""
//  5. Reply selected by the classifier
//  6. Reply dispatched if dispatch is enabled and conversation_id is set
//  7. 200 {"ok":true} returned regardless of the dispatch outcome
//
// By default step 7 waits for step 6. With AsyncDispatch the attempt runs
// detached and the server waits for it only on shutdown.
//
// # Example Usage
//
//	cfg := webhook.Config{
//		Listen:          "0.0.0.0:3000",
//		Secret:          os.Getenv("CHAT_CHANNEL_SECRET"),
//		DispatchEnabled: true,
//	}
//
//	dispatcher := kommo.NewDispatcher(kommoCfg, nil, logger)
//	server := webhook.New(cfg, reply.Default(), dispatcher, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
