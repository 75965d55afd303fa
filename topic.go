package mqtt

import (
	"strings"
	"unicode/utf8"
)

const (
	topicLevelSep       = '/'
	singleLevelWildcard = '+'
	multiLevelWildcard  = '#'
)

// ValidateTopicName validates a publish topic name (MQTT 3.1.1 section
// 4.7.3): non-empty, valid UTF-8, no NUL, no wildcard characters.
func ValidateTopicName(topic string) error {
	if err := ValidateTopicFilter(topic); err != nil {
		return err
	}
	if ContainsWildcard(topic) {
		return ErrInvalidPublishTopic
	}
	return nil
}

// ValidateTopicFilter validates a subscription topic filter (MQTT 3.1.1
// section 4.7.1): '+' must occupy a whole level, '#' must occupy a whole
// level and be the last one.
func ValidateTopicFilter(filter string) error {
	if filter == "" || !utf8.ValidString(filter) || strings.ContainsRune(filter, 0) {
		return ErrInvalidTopic
	}

	for rest, last := filter, false; !last; {
		var level string
		if i := strings.IndexByte(rest, topicLevelSep); i >= 0 {
			level, rest = rest[:i], rest[i+1:]
		} else {
			level, last = rest, true
		}

		if strings.ContainsRune(level, singleLevelWildcard) && level != string(singleLevelWildcard) {
			return ErrInvalidTopic
		}
		if strings.ContainsRune(level, multiLevelWildcard) {
			if level != string(multiLevelWildcard) || !last {
				return ErrInvalidTopic
			}
		}
	}

	return nil
}

// ContainsWildcard reports whether the filter uses '+' or '#'.
func ContainsWildcard(filter string) bool {
	return strings.ContainsAny(filter, "#+")
}

// MatchTopic reports whether a topic name matches a topic filter under MQTT
// wildcard semantics: '+' matches exactly one level, '#' matches all
// remaining levels. It walks both strings level by level without allocating.
func MatchTopic(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}

	for {
		flevel, frest, fmore := nextLevel(filter)
		if flevel == string(multiLevelWildcard) {
			return true
		}

		tlevel, trest, tmore := nextLevel(topic)
		if flevel != string(singleLevelWildcard) && flevel != tlevel {
			return false
		}

		// "a/#" also matches "a" itself: a trailing "/#" may remain
		// after the topic is exhausted.
		if !tmore {
			return !fmore || frest == string(multiLevelWildcard)
		}
		if !fmore {
			return false
		}

		filter, topic = frest, trest
	}
}

// nextLevel splits off the first topic level. more is false when this was
// the final level.
func nextLevel(s string) (level, rest string, more bool) {
	if i := strings.IndexByte(s, topicLevelSep); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}
