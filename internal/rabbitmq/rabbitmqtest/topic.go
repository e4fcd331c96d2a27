package rabbitmqtest

import "strings"

// MatchTopic reports whether routingKey matches a topic binding pattern.
// Words are dot separated; "*" matches exactly one word and "#" zero or more.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(splitWords(pattern), splitWords(routingKey))
}

func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchWords(rest, key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
