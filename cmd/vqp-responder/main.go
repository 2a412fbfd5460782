// vqp-responder is the reference wiring for a single responder
// process: it loads its configuration, assembles each port, and
// serves queries over HTTP until signaled to stop.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/syslog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/vqp-project/responder/config"
	"github.com/vqp-project/responder/core"
	"github.com/vqp-project/responder/engine"
	berrors "github.com/vqp-project/responder/errors"
	"github.com/vqp-project/responder/log"
	"github.com/vqp-project/responder/metrics"
	"github.com/vqp-project/responder/policy"
	"github.com/vqp-project/responder/predicate"
	"github.com/vqp-project/responder/responsemode"
	"github.com/vqp-project/responder/signer"
	"github.com/vqp-project/responder/vault"
	"github.com/vqp-project/responder/vocabulary"

	"github.com/jmhodges/clock"
)

func main() {
	configFile := flag.String("config", "", "path to the responder's JSON configuration file")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "usage: vqp-responder -config responder.json")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	failOnError(err, "loading config")

	logger, stats := statsAndLogging(cfg)
	log.Set(logger)

	clk := clock.New()
	pol := buildPolicy(cfg, logger)
	vlt := buildVault(context.Background(), cfg, pol, clk)
	resolver := vocabulary.New(cfg.Vocabulary.Allowed, nil)

	sgnr := signer.New()
	if cfg.Responder.WeakKeyDir != "" {
		failOnError(sgnr.Registry().UseWeakKeyDir(cfg.Responder.WeakKeyDir), "loading weak key blocklist")
	}
	if cfg.Responder.DefaultKeyID != "" {
		alg := core.SignatureAlgorithm(cfg.Responder.Algorithm)
		if alg == "" {
			alg = core.AlgorithmEd25519
		}
		failOnError(sgnr.Registry().GenerateKeyPair(cfg.Responder.DefaultKeyID, alg), "provisioning the responder's signing key")
	}

	shaper := buildShaper(cfg, sgnr, logger)
	auditPort := log.NewLoggingAuditPort(logger)

	eng := engine.New(
		clk,
		logger,
		stats,
		vlt,
		resolver,
		vocabulary.StandardMapping{},
		predicate.New(),
		sgnr,
		shaper,
		auditPort,
		cfg.Responder.ID,
		cfg.Responder.DefaultKeyID,
		cfg.MaxQueryComplexity,
	)

	if cfg.DebugAddr != "" {
		go serveDebug(cfg.DebugAddr)
	}

	logger.Info(fmt.Sprintf("vqp-responder listening as %s", cfg.Responder.ID))

	server := &http.Server{Addr: cfg.Responder.ListenAddr, Handler: queryHandler(eng, logger)}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.AuditErr(fmt.Sprintf("query server exited: %s", err))
		}
	}()

	waitForSignal(logger)
	_ = server.Close()
}

// buildVault loads the responder's data set either from a local flat
// JSON file (cfg.Vault.DataFile) or, when cfg.Vault.S3Bucket is set,
// from an encrypted object in S3 — prompting the operator at the
// terminal for the vault passphrase when the document leaves it
// unset, rather than ever accepting an empty one silently.
func buildVault(ctx context.Context, cfg *config.Config, pol *policy.Policy, clk clock.Clock) *vault.Vault {
	if cfg.Vault.S3Bucket != "" {
		passphrase := cfg.Vault.Passphrase.Value()
		if passphrase == "" {
			passphrase = promptPassphrase()
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		failOnError(err, "loading AWS config for the vault's S3 store")
		store := vault.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Vault.S3Bucket, cfg.Vault.S3Key, passphrase, pol, clk)
		v, err := store.Load(ctx)
		failOnError(err, "loading vault from S3")
		return v
	}

	data := map[string]interface{}{}
	if cfg.Vault.DataFile != "" {
		raw, err := os.ReadFile(cfg.Vault.DataFile)
		failOnError(err, "reading vault data file")
		failOnError(json.Unmarshal(raw, &data), "parsing vault data file")
	}
	return vault.New(data, pol, clk)
}

// promptPassphrase reads the vault passphrase from the controlling
// terminal without echoing it, for operators who'd rather type it at
// startup than leave it in the config document or its "secret:" file.
func promptPassphrase() string {
	fmt.Fprint(os.Stderr, "vault passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	failOnError(err, "reading vault passphrase")
	return string(pass)
}

func buildPolicy(cfg *config.Config, logger log.Logger) *policy.Policy {
	var limiter policy.Limiter
	if cfg.Policy.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Policy.RedisAddr})
		limiter = policy.NewRedisRateLimiter(client, cfg.Policy.RateLimits, cfg.Policy.RateLimitDefault)
	} else {
		limiter = policy.NewRateLimiter(cfg.Policy.RateLimits, cfg.Policy.RateLimitDefault)
	}

	if cfg.Policy.PolicyFile == "" {
		logger.Warning("no policy file configured; every requester will be denied by default")
		return policy.New(nil, nil, policy.Deny, limiter)
	}

	pol, err := policy.Load(cfg.Policy.PolicyFile, limiter)
	failOnError(err, "loading access policy")
	return pol
}

// buildShaper wires a durable consent queue when the document names a
// queue directory, and always wires a signature-backed reciprocal
// verifier. Without a queue directory the consent port stays nil,
// which Shaper treats as "that mode isn't supported" rather than a
// startup failure.
func buildShaper(cfg *config.Config, sgnr *signer.Signer, logger log.Logger) *responsemode.Shaper {
	var consent core.ConsentPort
	if cfg.Consent.QueueDir != "" {
		queue, err := responsemode.OpenQueuedConsentPort(cfg.Consent.QueueDir)
		failOnError(err, "opening consent queue")
		consent = queue
	}
	reciprocal := responsemode.NewSignatureReciprocalVerifier(sgnr)
	return responsemode.New(consent, reciprocal)
}

// statsAndLogging constructs the process-wide metrics scope and
// logger from the document's Syslog/Statsd sections, mirroring the
// dial-once-at-startup sequencing every responder follows regardless
// of which transport it's served over.
func statsAndLogging(cfg *config.Config) (log.Logger, metrics.Scope) {
	var writer *syslog.Writer
	if cfg.Syslog.Network != "" {
		w, err := syslog.Dial(cfg.Syslog.Network, cfg.Syslog.Server, syslog.LOG_INFO, "vqp-responder")
		failOnError(err, "connecting to syslog")
		writer = w
	}
	logger := log.New(writer, cfg.Syslog.StdoutOrDefault(), cfg.Syslog.SyslogOrDefault())
	scope := metrics.NewPromScope(prometheus.DefaultRegisterer, cfg.Statsd.Prefix)
	return logger, scope
}

func serveDebug(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Get().AuditErr(fmt.Sprintf("debug server exited: %s", err))
	}
}

// queryHandler adapts engine.ProcessQuery to a single POST /query
// endpoint: decode a core.Query, process it, and write back either
// the signed core.Response or the fault kind as a 4xx/5xx status.
func queryHandler(eng *engine.Engine, logger log.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var query core.Query
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp, err := eng.ProcessQuery(r.Context(), &query, nil)
		if err != nil {
			logger.Warning(fmt.Sprintf("query %s failed: %s", query.ID, err))
			w.WriteHeader(statusForFault(err))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

// statusForFault maps the closed fault-kind taxonomy onto HTTP status
// codes for callers that only understand REST conventions.
func statusForFault(err error) int {
	switch {
	case berrors.Is(err, berrors.InvalidQuery):
		return http.StatusBadRequest
	case berrors.Is(err, berrors.Unauthorized):
		return http.StatusForbidden
	case berrors.Is(err, berrors.VocabularyNotFound):
		return http.StatusNotFound
	case berrors.Is(err, berrors.RateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// waitForSignal blocks until SIGTERM, SIGINT, or SIGHUP.
func waitForSignal(logger log.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	sig := <-sigChan
	logger.Info(fmt.Sprintf("caught %s, exiting", sig))
}

func failOnError(err error, msg string) {
	if err == nil {
		return
	}
	kind := "UNKNOWN"
	if ve, ok := err.(*berrors.VQPError); ok {
		kind = ve.Kind.String()
	}
	logger := log.Get()
	logger.AuditErr(fmt.Sprintf("%s: %s (%s)", msg, err, kind))
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
	os.Exit(1)
}
