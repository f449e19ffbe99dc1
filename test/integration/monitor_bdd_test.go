//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/daemon"
	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/infra"
	"github.com/eliteGoblin/focusd/tsmon/internal/tailscale"
	"github.com/eliteGoblin/focusd/tsmon/internal/usecase"
	"github.com/eliteGoblin/focusd/tsmon/test/fixtures"
)

var _ = Describe("Monitor against a fake tailscale CLI", func() {
	var (
		fake    *fixtures.FakeTailscale
		invoker *infra.ExecInvoker
		monitor *daemon.Monitor
	)

	BeforeEach(func() {
		var err error
		fake, err = fixtures.NewFakeTailscale(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		DeferCleanup(os.Setenv, "PATH", os.Getenv("PATH"))
		Expect(os.Setenv("PATH", fake.PathEnv())).To(Succeed())

		invoker = infra.NewExecInvoker(infra.NewProcessManager(), zap.NewNop())

		cfg := daemon.DefaultMonitorConfig()
		cfg.Poller.Interval = 50 * time.Millisecond
		cfg.Poller.QueryTimeout = 500 * time.Millisecond
		cfg.ShutdownGrace = 200 * time.Millisecond
		monitor = daemon.NewMonitor(cfg, invoker, usecase.NewReconciler(zap.NewNop()), zap.NewNop())
	})

	AfterEach(func() {
		monitor.Stop()
	})

	latest := func() domain.StatusSnapshot {
		snap, _ := monitor.Latest()
		return snap
	}

	Describe("status polling", func() {
		Context("when the backend is stopped", func() {
			It("should report disconnected with identity fields", func() {
				Expect(monitor.Start(context.Background())).To(Succeed())

				Eventually(monitor.Snapshots()).Should(Receive(And(
					HaveField("Connected", BeFalse()),
					HaveField("Hostname", "integration-host"),
					HaveField("ExitNodeHost", domain.NoExitNode),
				)))
			})
		})

		Context("when the backend is running with an exit node", func() {
			It("should resolve the exit node host name", func() {
				Expect(fake.SetRunning(true)).To(Succeed())
				Expect(monitor.Start(context.Background())).To(Succeed())

				Eventually(latest).Should(And(
					HaveField("Connected", BeTrue()),
					HaveField("TailnetName", "integration.ts.net"),
					HaveField("ExitNodeHost", "exit-fra"),
				))
				Expect(latest().RawDetail).To(ContainSubstring("\n  \"BackendState\": \"Running\""))
			})
		})

		Context("when the daemon is unreachable", func() {
			It("should degrade and recover without restarting the loop", func() {
				Expect(fake.SetFailing(true)).To(Succeed())
				Expect(monitor.Start(context.Background())).To(Succeed())

				Eventually(latest).Should(HaveField("RawDetail", ContainSubstring("failed to connect to local tailscaled")))
				Expect(latest().Connected).To(BeFalse())

				Expect(fake.SetFailing(false)).To(Succeed())
				Expect(fake.SetRunning(true)).To(Succeed())
				Eventually(latest).Should(HaveField("Connected", BeTrue()))
			})
		})

		Context("when the status query hangs", func() {
			It("should time out and stop promptly", func() {
				Expect(fake.SetHanging(true)).To(Succeed())
				Expect(monitor.Start(context.Background())).To(Succeed())

				Eventually(latest, 3*time.Second).Should(HaveField("RawDetail", ContainSubstring("timed out")))

				start := time.Now()
				monitor.Stop()
				Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
			})
		})
	})

	Describe("actions", func() {
		It("should bring the connection up and let the next poll observe it", func() {
			Expect(monitor.Start(context.Background())).To(Succeed())
			Eventually(latest).Should(HaveField("Hostname", "integration-host"))

			action, err := monitor.Toggle(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(action).To(Equal(domain.ActionConnect))

			var result domain.ActionResult
			Eventually(monitor.ActionResults()).Should(Receive(&result))
			Expect(result.Success).To(BeTrue())
			Expect(result.Detail).To(Equal(domain.NoOutput))
			Expect(fake.IsRunning()).To(BeTrue())

			Eventually(latest).Should(HaveField("Connected", BeTrue()))
		})

		It("should refuse a second action while the first is running", func() {
			Expect(fake.SetHanging(true)).To(Succeed())

			Expect(monitor.RequestAction(context.Background(), domain.ActionConnect)).To(Succeed())
			Expect(monitor.RequestAction(context.Background(), domain.ActionDisconnect)).To(MatchError(domain.ErrBusy))

			start := time.Now()
			monitor.Stop()
			Expect(time.Since(start)).To(BeNumerically("<", 3*time.Second))

			var result domain.ActionResult
			Expect(monitor.ActionResults()).To(Receive(&result))
			Expect(result.Success).To(BeFalse())
		})
	})

	Describe("one-shot status query", func() {
		It("should parse the real process output", func() {
			Expect(fake.SetRunning(true)).To(Succeed())

			res, err := invoker.Invoke(context.Background(), tailscale.StatusCommand(), 2*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ExitCode).To(Equal(0))

			snap, err := usecase.NewReconciler(nil).Reconcile(res, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.ExitNodeHost).To(Equal("exit-fra"))
		})
	})
})
