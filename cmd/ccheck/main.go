// Command ccheck implements the consistency checker described at
// http://redis.io/topics/cluster-tutorial: it repeatedly INCRs and GETs
// a rotating set of keys against a cluster and reports any write that
// appears to have been lost or acknowledged without being durable. It
// is meant to be pointed at a real cluster undergoing failover or
// resharding while it runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/shardkv/rcluster"
)

var (
	addrFlag = flag.String("addr", "localhost:7000", "Redis cluster node `address` to discover the slot map from.")

	connTimeoutFlag  = flag.Duration("c", time.Second, "Connection `timeout`.")
	delayFlag        = flag.Duration("d", 0, "Delay `duration` between INCR calls.")
	readTimeoutFlag  = flag.Duration("r", 100*time.Millisecond, "Read `timeout`.")
	writeTimeoutFlag = flag.Duration("w", 100*time.Millisecond, "Write `timeout`.")

	sizeFlag     = flag.Int("size", 10, "Pooled `connections` to keep idle per node.")
	overflowFlag = flag.Int("overflow", 90, "Extra pooled `connections` allowed beyond size.")
)

const (
	workingSet = 1000
	keySpace   = 10000

	clusterName = "ccheck"
)

var (
	mu sync.Mutex

	writes, reads             int
	failedWrites, failedReads int
	lostWrites, noAckWrites   int
)

func main() {
	flag.Parse()
	rand.Seed(time.Now().UnixNano())

	host, portStr, err := net.SplitHostPort(*addrFlag)
	if err != nil {
		log.Fatalf("invalid -addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("invalid -addr port: %v", err)
	}

	_, err = rcluster.Connect(rcluster.Config{
		ClusterName: clusterName,
		Nodes:       []rcluster.Addr{{Host: host, Port: uint16(port)}},
		Size:        *sizeFlag,
		MaxOverflow: *overflowFlag,
		DialOptions: []redis.DialOption{
			redis.DialConnectTimeout(*connTimeoutFlag),
			redis.DialReadTimeout(*readTimeoutFlag),
			redis.DialWriteTimeout(*writeTimeoutFlag),
		},
	})
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer rcluster.Disconnect(clusterName)

	errCh := make(chan error, 1)
	go printStats()
	go printErr(errCh)

	runChecks(errCh, *delayFlag)
}

func runChecks(errCh chan<- error, delay time.Duration) {
	cache := make(map[string]int, workingSet)
	for {
		var r, w, fr, fw, lw, naw int

		key := genKey()

		// read only if we know what that key should be
		if exp, ok := cache[key]; ok {
			res, err := rcluster.Q(clusterName, rcluster.Pipeline{{Verb: "GET", Args: []string{key}}})
			if err != nil {
				select {
				case errCh <- fmt.Errorf("read from slot %d failed: %v", rcluster.SlotOf(key), err):
				default:
				}
				fr = 1
			} else {
				v, err := redis.Int(res, nil)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("read from slot %d returned unexpected reply: %v", rcluster.SlotOf(key), err):
					default:
					}
					fr = 1
				} else {
					r = 1
					if exp > v {
						lw = exp - v
					} else if exp < v {
						naw = v - exp
					}
				}
			}
		}

		// write
		res, err := rcluster.Q(clusterName, rcluster.Pipeline{{Verb: "INCR", Args: []string{key}}})
		if err != nil {
			select {
			case errCh <- fmt.Errorf("write to slot %d failed: %v", rcluster.SlotOf(key), err):
			default:
			}
			fw = 1
		} else {
			v, err := redis.Int(res, nil)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("write to slot %d returned unexpected reply: %v", rcluster.SlotOf(key), err):
				default:
				}
				fw = 1
			} else {
				w = 1
				cache[key] = v
			}
		}

		updateStats(w, r, fw, fr, lw, naw)
		time.Sleep(delay)
	}
}

func updateStats(deltas ...int) {
	mu.Lock()
	writes += deltas[0]
	reads += deltas[1]
	failedWrites += deltas[2]
	failedReads += deltas[3]
	lostWrites += deltas[4]
	noAckWrites += deltas[5]
	mu.Unlock()
}

func printErr(errCh <-chan error) {
	for err := range errCh {
		fmt.Println(err)
		time.Sleep(time.Second)
	}
}

// each second, print stats
func printStats() {
	for range time.Tick(time.Second) {
		mu.Lock()
		w, r := writes, reads
		fw, fr := failedWrites, failedReads
		lw, naw := lostWrites, noAckWrites
		mu.Unlock()
		fmt.Printf("%d R (%d err) | %d W (%d err) | %d lost | %d noack\n", r, fr, w, fw, lw, naw)
	}
}

func genKey() string {
	ks := workingSet
	if rand.Float64() > 0.5 {
		ks = keySpace
	}
	return "key_" + strconv.Itoa(rand.Intn(ks))
}
