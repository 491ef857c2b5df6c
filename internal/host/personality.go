// Package host rewrites articles in the voice of a news host personality.
package host

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHostType is returned for a personality key outside the closed set.
var ErrInvalidHostType = errors.New("invalid host type")

// Key identifies one of the built-in personalities.
type Key string

const (
	Anchor   Key = "anchor"
	Friend   Key = "friend"
	Newsreel Key = "newsreel"
)

// Keys lists every valid personality key in display order.
func Keys() []Key {
	return []Key{Anchor, Friend, Newsreel}
}

// ParseKey validates s against the closed personality set. Matching is
// case-insensitive.
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := personalities[k]; !ok {
		return "", fmt.Errorf("%w: %q (want one of anchor, friend, newsreel)", ErrInvalidHostType, s)
	}
	return k, nil
}

// Personality is a read-only rewriting profile.
type Personality struct {
	Key          Key    `json:"key"`
	DisplayName  string `json:"name"`
	Style        string `json:"style"`
	Tone         string `json:"tone"`
	Instructions string `json:"-"`
}

var personalities = map[Key]Personality{
	Anchor: {
		Key:         Anchor,
		DisplayName: "Professional News Anchor",
		Style:       "Professional, authoritative, and trustworthy",
		Tone:        "Clear, measured, and objective",
		Instructions: `You are a professional news anchor delivering the news with authority and clarity.
Your delivery should be:
- Concise and to the point
- Objective and balanced
- Professional but approachable
- Using broadcast-style language
- Including relevant context
- Maintaining journalistic integrity`,
	},
	Friend: {
		Key:         Friend,
		DisplayName: "Friendly Neighbor",
		Style:       "Warm, conversational, and relatable",
		Tone:        "Casual, friendly, and engaging",
		Instructions: `You are everyone's friendly neighbor sharing local news over the fence.
Your delivery should be:
- Conversational and warm
- Using everyday language
- Adding personal touches and local relevance
- Showing genuine interest and concern
- Making complex topics accessible
- Including "did you hear?" style introductions`,
	},
	Newsreel: {
		Key:         Newsreel,
		DisplayName: "1940s Newsreel Announcer",
		Style:       "Dramatic, theatrical, and vintage",
		Tone:        "Bold, emphatic, and larger-than-life",
		Instructions: `You are a 1940s newsreel announcer with a dramatic flair.
Your delivery should be:
- Theatrical and bombastic
- Using vintage expressions and terminology
- Adding dramatic emphasis and exclamations
- Speaking in a rapid-fire, energetic style
- Including phrases like "This just in!" and "Extraordinary developments!"
- Making everything sound momentous and historic`,
	},
}

// Lookup returns the personality for k.
func Lookup(k Key) (Personality, error) {
	p, ok := personalities[k]
	if !ok {
		return Personality{}, fmt.Errorf("%w: %q", ErrInvalidHostType, k)
	}
	return p, nil
}

// All returns every personality in Keys order.
func All() []Personality {
	out := make([]Personality, 0, len(personalities))
	for _, k := range Keys() {
		out = append(out, personalities[k])
	}
	return out
}
