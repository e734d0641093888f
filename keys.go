package rcluster

import "strings"

// Command is a single request to the cluster: a verb (e.g. "GET") and its
// positional arguments.
type Command struct {
	Verb string
	Args []string
}

// Pipeline is a batch of commands sent together on one connection. A
// transactional pipeline starts with a MULTI command.
type Pipeline []Command

var unroutableVerbs = map[string]bool{
	"INFO":     true,
	"CONFIG":   true,
	"SHUTDOWN": true,
	"SLAVEOF":  true,
}

// KeyOf returns the routing key for cmds, and false if no key can be
// extracted (an "unroutable" command). The rules, applied in order:
//
//  1. If the first command's verb is MULTI, recurse on the rest of the
//     pipeline.
//  2. A pipeline of two or more commands is assumed to hash to one slot;
//     the first command's key is used.
//  3. INFO, CONFIG, SHUTDOWN and SLAVEOF have no routing key.
//  4. EVAL and EVALSHA take their key at argument index 2 (script,
//     numkeys, key1, ...).
//  5. Otherwise the key is argument index 0 (e.g. GET key).
func KeyOf(cmds Pipeline) (string, bool) {
	if len(cmds) == 0 {
		return "", false
	}
	if strings.EqualFold(cmds[0].Verb, "MULTI") {
		return KeyOf(cmds[1:])
	}
	return keyOfOne(cmds[0])
}

func keyOfOne(cmd Command) (string, bool) {
	verb := strings.ToUpper(cmd.Verb)

	if unroutableVerbs[verb] {
		return "", false
	}

	switch verb {
	case "EVAL", "EVALSHA":
		if len(cmd.Args) < 3 {
			return "", false
		}
		return cmd.Args[2], true
	default:
		if len(cmd.Args) < 1 {
			return "", false
		}
		return cmd.Args[0], true
	}
}
