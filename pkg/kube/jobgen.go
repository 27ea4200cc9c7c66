// Package kube post-processes uploaded pieces by creating one Kubernetes
// Job per piece object.
package kube

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
)

const (
	DefaultImage     = "ghcr.io/phantominthewire/image-pipeline:latest"
	DefaultNamespace = "default"
	appLabel         = "puzzle-piece-processor"
)

type Config struct {
	Kubeconfig    string `yaml:"kubeconfig"`
	Namespace     string `yaml:"namespace"`
	BucketURL     string `yaml:"bucketURL"`
	WasmBucketURL string `yaml:"wasmBucketURL"`
	Image         string `yaml:"image"`
}

func int32Ptr(i int32) *int32 { return &i }

// JobProcessor creates a Job that downloads a piece object, runs
// filter.wasm on it and uploads the result under processed/.
type JobProcessor struct {
	client kubernetes.Interface
	cfg    Config
	now    func() time.Time
}

// NewJobProcessor connects using cfg.Kubeconfig, or the default
// ~/.kube/config when empty.
func NewJobProcessor(cfg Config) (*JobProcessor, error) {
	kubeconfig := cfg.Kubeconfig
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}
	restCfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return newJobProcessor(clientset, cfg), nil
}

func newJobProcessor(client kubernetes.Interface, cfg Config) *JobProcessor {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.WasmBucketURL == "" {
		cfg.WasmBucketURL = cfg.BucketURL
	}
	return &JobProcessor{client: client, cfg: cfg, now: time.Now}
}

func (p *JobProcessor) Name() string { return "kube-job" }

// Process creates the Job for the piece stored at object key.
func (p *JobProcessor) Process(ctx context.Context, key string) error {
	job := p.BuildJob(JobName(key, p.now()), key)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		_, err := p.client.BatchV1().Jobs(p.cfg.Namespace).Create(ctx, job, meta.CreateOptions{})
		return err
	})
	if err != nil {
		return fmt.Errorf("create job for %s: %w", key, err)
	}
	logging.Logger().Info("job created", "job", job.Name, "piece", key)
	return nil
}

var invalidName = regexp.MustCompile(`[^a-z0-9-]`)

// JobName derives a valid, unique Job name from a piece key.
func JobName(key string, at time.Time) string {
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	sanitized := invalidName.ReplaceAllString(strings.ToLower(base), "-")
	sanitized = strings.Trim(sanitized, "-")

	suffix := fmt.Sprintf("-%d", at.UnixNano())
	name := "piece-" + sanitized
	// DNS-1123 labels are at most 63 characters
	if len(name)+len(suffix) > 63 {
		name = strings.TrimRight(name[:63-len(suffix)], "-")
	}
	return name + suffix
}

// BuildJob returns the Job spec for the piece at key.
func (p *JobProcessor) BuildJob(jobName, key string) *batchv1.Job {
	inputURL := fmt.Sprintf("%s/%s", p.cfg.BucketURL, key)
	outputURL := fmt.Sprintf("%s/processed/%s", p.cfg.BucketURL, key)

	return &batchv1.Job{
		ObjectMeta: meta.ObjectMeta{
			Name:      jobName,
			Namespace: p.cfg.Namespace,
			Labels:    map[string]string{"app": appLabel},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(1),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: meta.ObjectMeta{
					Labels: map[string]string{"job-name": jobName},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,

					// fetch filter.wasm into the shared volume
					InitContainers: []corev1.Container{{
						Name:  "init-wasm",
						Image: "curlimages/curl:7.85.0",
						Command: []string{
							"sh", "-c",
							fmt.Sprintf(
								"mkdir -p /opt/filter && "+
									"curl -s %s/filter.wasm -o /opt/filter/filter.wasm",
								p.cfg.WasmBucketURL,
							),
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "wasm-volume",
							MountPath: "/opt/filter",
						}},
					}},

					Containers: []corev1.Container{{
						Name:  "processor",
						Image: p.cfg.Image,
						Command: []string{
							"sh", "-c",
							`curl -s "$INPUT_URL" | runwasi /opt/filter/filter.wasm > /tmp/out && ` +
								`curl -X PUT -T /tmp/out "$OUTPUT_URL"`,
						},
						Env: []corev1.EnvVar{
							{Name: "INPUT_URL", Value: inputURL},
							{Name: "OUTPUT_URL", Value: outputURL},
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "wasm-volume",
							MountPath: "/opt/filter",
						}},
					}},

					Volumes: []corev1.Volume{{
						Name: "wasm-volume",
						VolumeSource: corev1.VolumeSource{
							EmptyDir: &corev1.EmptyDirVolumeSource{},
						},
					}},
				},
			},
		},
	}
}
