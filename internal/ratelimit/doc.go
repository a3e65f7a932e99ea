// Package ratelimit provides the token bucket that paces every request
// notionsync sends to the Notion API.
//
// One Limiter is created per process and shared by reference between all
// concurrently running crawl tasks, including tasks of different roots. The
// limiter is only ever drawn from: a throttling response from the API does
// not reset or refund it, because the remote quota is enforced independently.
//
// # Usage
//
//	lim := ratelimit.New(3, 5) // 3 requests/second, burst of 5
//	if err := lim.Wait(ctx); err != nil {
//	    return err // ctx canceled
//	}
//
// Several limiters can be combined with Multi, e.g. a per-second and a
// per-minute budget, in which case every one of them must grant a token.
package ratelimit
