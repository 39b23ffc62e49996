// Package redis stores agent conversation threads in Redis lists so pooled
// agents on several nodes share the same transcript for a thread id.
package redis
