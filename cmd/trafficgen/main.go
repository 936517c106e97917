// trafficgen writes a synthetic pcap file of Ethernet/IPv4/TCP frames,
// adapted from the teacher's network_simulator.go (flag-driven CLI,
// iteration loop, summary printf) but generating wire-format packet
// captures instead of a routing topology, so nidcore can be exercised
// offline without a live interface.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// scenario describes one synthetic traffic pattern this generator can
// emit, selected by the -scenario flag.
type scenario string

const (
	scenarioNormal  scenario = "normal"
	scenarioSYNScan scenario = "synscan"
	scenarioHTTPSQL scenario = "httpsqli"
	scenarioTelnet  scenario = "telnet"
)

func main() {
	outPath := flag.String("out", "traffic.pcap", "output pcap file path")
	scenarioName := flag.String("scenario", string(scenarioNormal), "traffic pattern: normal, synscan, httpsqli, telnet")
	count := flag.Int("count", 100, "number of packets to generate")
	seed := flag.Int64("seed", 1, "PRNG seed, for reproducible captures")
	flag.Parse()

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trafficgen: creating output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		fmt.Fprintf(os.Stderr, "trafficgen: writing pcap header: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	frames, err := generate(scenario(*scenarioName), *count, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trafficgen: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * 10 * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			fmt.Fprintf(os.Stderr, "trafficgen: writing packet: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("wrote %d packets (%s scenario) to %s\n", len(frames), *scenarioName, *outPath)
}

func generate(s scenario, count int, rng *rand.Rand) ([][]byte, error) {
	switch s {
	case scenarioNormal:
		return generateNormalFlow(count, rng), nil
	case scenarioSYNScan:
		return generateSYNScan(), nil
	case scenarioHTTPSQL:
		return generateHTTPSQLi(), nil
	case scenarioTelnet:
		return generateTelnet(), nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", s)
	}
}

// generateNormalFlow produces a bidirectional TCP conversation with
// randomized payload sizes, exercising the common case the connection
// tracker and feature extractor see in steady-state traffic.
func generateNormalFlow(count int, rng *rand.Rand) [][]byte {
	src := randomIP(rng)
	dst := randomIP(rng)
	srcPort := uint16(1024 + rng.Intn(60000))
	dstPort := uint16(443)

	var frames [][]byte
	frames = append(frames, tcpFrame(src, dst, srcPort, dstPort, flagSYN, nil))
	frames = append(frames, tcpFrame(dst, src, dstPort, srcPort, flagSYN|flagACK, nil))
	frames = append(frames, tcpFrame(src, dst, srcPort, dstPort, flagACK, nil))

	for i := 0; i < count; i++ {
		payload := make([]byte, 64+rng.Intn(1024))
		rng.Read(payload)
		if i%2 == 0 {
			frames = append(frames, tcpFrame(src, dst, srcPort, dstPort, flagACK|flagPSH, payload))
		} else {
			frames = append(frames, tcpFrame(dst, src, dstPort, srcPort, flagACK|flagPSH, payload))
		}
	}

	frames = append(frames, tcpFrame(src, dst, srcPort, dstPort, flagFIN|flagACK, nil))
	frames = append(frames, tcpFrame(dst, src, dstPort, srcPort, flagFIN|flagACK, nil))
	return frames
}

// generateSYNScan reproduces the S2 port-scan pattern: five bare-SYN
// packets to a fixed set of destination ports.
func generateSYNScan() [][]byte {
	src := net.ParseIP("10.0.0.50").To4()
	dst := net.ParseIP("192.168.1.100").To4()
	ports := []uint16{22, 80, 443, 3306, 8080}

	var frames [][]byte
	for _, port := range ports {
		frames = append(frames, tcpFrame(src, dst, 51000, port, flagSYN, nil))
	}
	return frames
}

// generateHTTPSQLi reproduces the S1 SQL-injection pattern: an HTTP
// request on port 80 carrying a classic injection payload.
func generateHTTPSQLi() [][]byte {
	src := net.ParseIP("198.51.100.20").To4()
	dst := net.ParseIP("203.0.113.10").To4()
	payload := []byte("GET /login?user=admin' or '1'='1 HTTP/1.1\r\nHost: example.com\r\n\r\n")

	return [][]byte{
		tcpFrame(src, dst, 52000, 80, flagSYN, nil),
		tcpFrame(dst, src, 80, 52000, flagSYN|flagACK, nil),
		tcpFrame(src, dst, 52000, 80, flagACK|flagPSH, payload),
	}
}

// generateTelnet reproduces the S3 plaintext-credentials pattern over
// port 23.
func generateTelnet() [][]byte {
	src := net.ParseIP("10.1.1.5").To4()
	dst := net.ParseIP("10.1.1.1").To4()
	payload := []byte("login: admin\r\npassword: hunter2\r\n")

	return [][]byte{
		tcpFrame(src, dst, 53000, 23, flagSYN, nil),
		tcpFrame(dst, src, 23, 53000, flagSYN|flagACK, nil),
		tcpFrame(src, dst, 53000, 23, flagACK|flagPSH, payload),
	}
}

const (
	flagFIN uint8 = 1 << 0
	flagSYN uint8 = 1 << 1
	flagACK uint8 = 1 << 4
	flagPSH uint8 = 1 << 3
)

func randomIP(rng *rand.Rand) net.IP {
	return net.IPv4(10, byte(rng.Intn(256)), byte(rng.Intn(256)), byte(1+rng.Intn(254)))
}

// tcpFrame hand-assembles a minimal Ethernet+IPv4+TCP frame, matching the
// byte-offset construction style of internal/packet's parser rather than
// using gopacket's layer serialization, so the generator and the parser
// under test agree on wire format by construction.
func tcpFrame(src, dst net.IP, srcPort, dstPort uint16, flags uint8, payload []byte) []byte {
	src4, dst4 := src.To4(), dst.To4()
	tcpLen := 20 + len(payload)
	ipLen := 20 + tcpLen
	frame := make([]byte, 14+ipLen)

	binary.BigEndian.PutUint16(frame[12:14], 0x0800)

	ip := frame[14 : 14+20]
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], uint16(ipLen))
	ip[8] = 64
	ip[9] = 6
	copy(ip[12:16], src4)
	copy(ip[16:20], dst4)

	tcp := frame[34 : 34+tcpLen]
	binary.BigEndian.PutUint16(tcp[0:2], srcPort)
	binary.BigEndian.PutUint16(tcp[2:4], dstPort)
	tcp[12] = 5 << 4
	tcp[13] = flags
	binary.BigEndian.PutUint16(tcp[14:16], 65535)
	copy(tcp[20:], payload)

	return frame
}
