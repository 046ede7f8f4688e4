package account

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution/signer"
	"github.com/ggonzalez94/rise-pilot/internal/httpx"
)

const keystorePrefix = "keystore:"

// Account binds one signing key to the proxy its traffic is routed through.
// Index is 1-based in file order.
type Account struct {
	Index  int
	Signer signer.Signer
	Proxy  *url.URL
}

func (a Account) Address() common.Address {
	if a.Signer == nil {
		return common.Address{}
	}
	return a.Signer.Address()
}

// String renders the short form used in log tags, e.g. "#3 0x12ab..cd34".
func (a Account) String() string {
	hex := a.Address().Hex()
	return fmt.Sprintf("#%d %s..%s", a.Index, hex[:6], hex[len(hex)-4:])
}

// Load reads the keys file and the optional proxies file. Proxy line N
// belongs to key N; a shorter proxy list wraps around.
func Load(keysPath, proxiesPath string) ([]Account, error) {
	keyLines, err := readLines(keysPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "read keys file", err)
	}
	if len(keyLines) == 0 {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("no keys found in %s", keysPath))
	}
	var proxyLines []string
	if strings.TrimSpace(proxiesPath) != "" {
		proxyLines, err = readLines(proxiesPath)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUsage, "read proxies file", err)
		}
	}
	return Build(keyLines, proxyLines)
}

// Build pairs already-read key and proxy entries.
func Build(keyLines, proxyLines []string) ([]Account, error) {
	accounts := make([]Account, 0, len(keyLines))
	for i, line := range keyLines {
		s, err := parseKeyLine(line)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeSigner, fmt.Sprintf("key #%d", i+1), err)
		}
		var proxy *url.URL
		if len(proxyLines) > 0 {
			proxy, err = httpx.ParseProxy(proxyLines[i%len(proxyLines)])
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("proxy for key #%d", i+1), err)
			}
		}
		accounts = append(accounts, Account{Index: i + 1, Signer: s, Proxy: proxy})
	}
	return accounts, nil
}

func parseKeyLine(line string) (signer.Signer, error) {
	if path, ok := strings.CutPrefix(line, keystorePrefix); ok {
		return signer.NewLocalSignerFromKeystore(strings.TrimSpace(path), "")
	}
	return signer.NewLocalSignerFromHex(line)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseLines(f)
}

func parseLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
